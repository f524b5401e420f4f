//go:build !onnxruntime

package ner

func openSession(modelPath string) (session, error) {
	return newBridgeSession(modelPath), nil
}
