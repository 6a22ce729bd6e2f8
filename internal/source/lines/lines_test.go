package lines

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/source"
)

func collect(t *testing.T, s source.Source) []model.CommentDraft {
	t.Helper()
	out := make(chan model.CommentDraft, 64)
	require.NoError(t, s.Stream(context.Background(), out))
	close(out)
	var got []model.CommentDraft
	for d := range out {
		got = append(got, d)
	}
	return got
}

func TestStream(t *testing.T) {
	in := "First comment\r\n\n   \nSecond  comment with  spaces\nspam\n"
	s, err := New(strings.NewReader(in), model.Post{ID: 7, Title: "Release notes"}, "Dana")
	require.NoError(t, err)

	got := collect(t, s)
	require.Len(t, got, 3)
	assert.Equal(t, "First comment", got[0].Text)
	assert.Equal(t, "Second  comment with  spaces", got[1].Text)
	assert.Equal(t, "spam", got[2].Text)
	for _, d := range got {
		assert.Equal(t, int64(7), d.PostID)
		assert.Equal(t, "Release notes", d.PostTitle)
		assert.Equal(t, "Dana", d.Author)
	}

	posts, err := s.Posts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Post{{ID: 7, Title: "Release notes"}}, posts)
}

func TestRegistered(t *testing.T) {
	s, err := source.Open("lines", source.Config{
		Input:  strings.NewReader("a\nb\n"),
		PostID: 1,
		Author: "x",
	})
	require.NoError(t, err)
	assert.Len(t, collect(t, s), 2)

	_, err = source.Open("lines", source.Config{})
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestReadError(t *testing.T) {
	s, err := New(failingReader{}, model.Post{ID: 1}, "x")
	require.NoError(t, err)
	err = s.Stream(context.Background(), make(chan model.CommentDraft, 1))
	assert.ErrorContains(t, err, "disk gone")
}
