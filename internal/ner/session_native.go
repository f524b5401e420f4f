//go:build onnxruntime

package ner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

func initRuntime() error {
	ortOnce.Do(func() {
		if lib := os.Getenv("TERN_ONNXRUNTIME_LIB"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// nativeSession runs the model in-process via the onnxruntime C library. The
// model stays loaded for the life of the session.
type nativeSession struct {
	sess       *ort.DynamicAdvancedSession
	inputNames []string
}

func openSession(modelPath string) (session, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no outputs", modelPath)
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	sess, err := ort.NewDynamicAdvancedSession(modelPath, names, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session: %w", err)
	}
	return &nativeSession{sess: sess, inputNames: names}, nil
}

func (s *nativeSession) Run(ctx context.Context, inputIDs, attentionMask, typeIDs []int64) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq := int64(len(inputIDs))
	shape := ort.NewShape(1, seq)

	feed := make([]ort.Value, 0, len(s.inputNames))
	defer func() {
		for _, v := range feed {
			_ = v.Destroy()
		}
	}()
	for _, name := range s.inputNames {
		data := make([]int64, seq)
		switch {
		case strings.Contains(name, "input_ids"):
			copy(data, inputIDs)
		case strings.Contains(name, "attention_mask"):
			copy(data, attentionMask)
		case strings.Contains(name, "token_type"):
			copy(data, typeIDs)
		}
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("build input tensor %s: %w", name, err)
		}
		feed = append(feed, tensor)
	}

	out := []ort.Value{nil}
	if err := s.sess.Run(feed, out); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}
	logitsTensor, ok := out[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected model output type %T", out[0])
	}
	defer logitsTensor.Destroy()

	dims := logitsTensor.GetShape()
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected logits shape %v", dims)
	}
	seqLen, classes := int(dims[1]), int(dims[2])
	flat := logitsTensor.GetData()
	if len(flat) < seqLen*classes {
		return nil, fmt.Errorf("logits tensor shorter than its shape")
	}
	logits := make([][]float32, seqLen)
	for i := range logits {
		row := make([]float32, classes)
		copy(row, flat[i*classes:(i+1)*classes])
		logits[i] = row
	}
	return logits, nil
}

func (s *nativeSession) Close() error {
	return s.sess.Destroy()
}
