package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CLIPProcess embeds text by invoking the CLIP helper script as a one-shot
// subprocess: a JSON request on stdin, the raw vector as JSON on stdout.
// The clip-ViT-B-32 model it wraps emits 512-dim vectors, matching the
// semantic space.
type CLIPProcess struct {
	python string
	script string
}

// NewCLIPProcess creates a subprocess embedder for the given helper script.
func NewCLIPProcess(python, script string) *CLIPProcess {
	if python == "" {
		python = "python3"
	}
	return &CLIPProcess{python: python, script: script}
}

type clipRequest struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
}

// EmbedText runs the helper once for the given text.
func (e *CLIPProcess) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(clipRequest{Mode: "text", Text: text})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.python, e.script)
	cmd.Stdin = bytes.NewReader(reqBody)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("clip helper failed: %s", msg)
	}

	var raw []float64
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("malformed clip helper output: %w", err)
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}
