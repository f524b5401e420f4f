package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// bridgeSession shells out to a python3 one-liner for inference. It is the
// fallback backend for builds without the onnxruntime shared library; the
// model is re-loaded per call, so it is slow but dependency-free on the Go
// side.
type bridgeSession struct {
	modelPath string
	python    string
}

func newBridgeSession(modelPath string) *bridgeSession {
	python := os.Getenv("TERN_PYTHON")
	if python == "" {
		python = "python3"
	}
	return &bridgeSession{modelPath: modelPath, python: python}
}

type bridgeRequest struct {
	ModelPath     string  `json:"model_path"`
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
	TypeIDs       []int64 `json:"token_type_ids"`
}

type bridgeResponse struct {
	Logits [][]float32 `json:"logits"`
	Error  string      `json:"error"`
}

func (s *bridgeSession) Run(ctx context.Context, inputIDs, attentionMask, typeIDs []int64) ([][]float32, error) {
	payload, err := json.Marshal(bridgeRequest{
		ModelPath:     s.modelPath,
		InputIDs:      inputIDs,
		AttentionMask: attentionMask,
		TypeIDs:       typeIDs,
	})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.python, "-c", bridgeScript)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("python inference failed: %v: %s", err, stderr.String())
		}
		return nil, fmt.Errorf("python inference failed: %w", err)
	}

	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse python inference output: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python inference error: %s", resp.Error)
	}
	return resp.Logits, nil
}

func (s *bridgeSession) Close() error { return nil }

const bridgeScript = `
import json
import sys

try:
    import numpy as np
    import onnxruntime as ort
except Exception as exc:
    print(json.dumps({"error": f"missing python dependencies (onnxruntime, numpy): {exc}"}))
    sys.exit(0)

try:
    req = json.load(sys.stdin)
    sess = ort.InferenceSession(req["model_path"], providers=["CPUExecutionProvider"])

    seq_len = len(req["input_ids"])
    arrays = {
        "input_ids": np.array([req["input_ids"]], dtype=np.int64),
        "attention_mask": np.array([req["attention_mask"]], dtype=np.int64),
        "token_type_ids": np.array([req["token_type_ids"]], dtype=np.int64),
    }

    feed = {}
    for inp in sess.get_inputs():
        for key, arr in arrays.items():
            if key in inp.name:
                feed[inp.name] = arr
                break
        else:
            # Exports without token_type_ids still declare other int inputs.
            feed[inp.name] = np.zeros((1, seq_len), dtype=np.int64)

    logits = sess.run(None, feed)[0][0].astype(np.float32).tolist()
    print(json.dumps({"logits": logits}))
except Exception as exc:
    print(json.dumps({"error": str(exc)}))
`
