package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortMu guards the process-wide ONNX Runtime initialization. A failed
// attempt leaves the runtime uninitialized so a later call can retry.
var ortMu sync.Mutex

func initORT(libPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	return ort.InitializeEnvironment()
}

// session wraps a sequence-classification model: BERT-style inputs, one
// logits output of shape [batch, labels].
type session struct {
	sess      *ort.DynamicAdvancedSession
	inputs    []string
	output    string
	numLabels int64
}

func newSession(modelPath, libPath string, threads int) (*session, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	inputNames, err := selectInputs(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected logits output [batch, labels], got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if threads > 0 {
		opts.SetIntraOpNumThreads(threads)
	}
	opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &session{
		sess:      sess,
		inputs:    inputNames,
		output:    outputs[0].Name,
		numLabels: dims[1],
	}, nil
}

// selectInputs requires input_ids and attention_mask. token_type_ids is
// passed only when the model declares it (DistilBERT-style models do not).
func selectInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask"}
	for _, n := range names {
		if !have[n] {
			return nil, fmt.Errorf("onnx: model missing required input %q", n)
		}
	}
	if have["token_type_ids"] {
		names = append(names, "token_type_ids")
	}
	return names, nil
}

// run returns flat logits of length b.size*numLabels.
func (s *session) run(b batch) ([]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	data := map[string][]int64{
		"input_ids":      b.inputIDs,
		"attention_mask": b.attentionMask,
		"token_type_ids": b.tokenTypeIDs,
	}
	in := make([]ort.Value, 0, len(s.inputs))
	for _, name := range s.inputs {
		t, err := ort.NewTensor(shape, data[name])
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", name, err)
		}
		defer t.Destroy()
		in = append(in, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, s.numLabels))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.sess.Run(in, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	logits := make([]float32, len(out.GetData()))
	copy(logits, out.GetData())
	return logits, nil
}

func (s *session) close() error {
	return s.sess.Destroy()
}
