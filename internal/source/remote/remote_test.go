package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/source"
	"github.com/crimson-sun/commentguard/internal/source/httpclient"
)

type apiComment struct {
	Post   int64  `json:"post"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// commentAPI serves the given comments, paginated by the limit query param.
func commentAPI(t *testing.T, posts []model.Post, comments []apiComment) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"posts": posts})
	})
	mux.HandleFunc("GET /comments", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		start := min((page-1)*limit, len(comments))
		end := min(start+limit, len(comments))
		json.NewEncoder(w).Encode(map[string]any{
			"comments": comments[start:end],
			"has_more": end < len(comments),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func drain(t *testing.T, s source.Source) []model.CommentDraft {
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

func TestPostsAndPagedComments(t *testing.T) {
	posts := []model.Post{{ID: 1, Title: "Hello"}, {ID: 2, Title: "World"}}
	var comments []apiComment
	for i := 0; i < 7; i++ {
		comments = append(comments, apiComment{Post: int64(i%2 + 1), Author: "u" + strconv.Itoa(i), Text: "comment " + strconv.Itoa(i)})
	}
	srv := commentAPI(t, posts, comments)

	s, err := New(srv.URL, "tok", WithPageSize(3))
	require.NoError(t, err)

	gotPosts, err := s.Posts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, posts, gotPosts)

	got := drain(t, s)
	require.Len(t, got, 7)
	for i, d := range got {
		assert.Equal(t, "comment "+strconv.Itoa(i), d.Text)
	}
	assert.Equal(t, "Hello", got[0].PostTitle)
	assert.Equal(t, "World", got[1].PostTitle)
}

func TestEmptyAPI(t *testing.T) {
	srv := commentAPI(t, nil, nil)
	s, err := source.Open("remote", source.Config{Endpoint: srv.URL, Token: "tok"})
	require.NoError(t, err)
	assert.Empty(t, drain(t, s))
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := New(srv.URL, "", WithClientOptions(httpclient.WithBackoff(time.Millisecond)))
	require.NoError(t, err)

	err = s.Stream(context.Background(), make(chan model.CommentDraft, 1))
	assert.ErrorContains(t, err, "page 1")
	assert.ErrorContains(t, err, "HTTP 500")
}

func TestNewValidatesEndpoint(t *testing.T) {
	_, err := New("", "")
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = New("not a url", "")
	assert.Error(t, err)
}
