package activity

import (
	"encoding/json"
	"fmt"
)

type captureSpec struct {
	Stream *outputFormat `json:"stream,omitempty"`
	AtEnd  *outputFormat `json:"atEnd,omitempty"`
}

type outputFormat struct {
	Format string `json:"format"`
}

type captureSpecs struct {
	Stdout *captureSpec `json:"stdout,omitempty"`
	Stderr *captureSpec `json:"stderr,omitempty"`
}

type runSpec struct {
	EntryPoint string        `json:"entry_point"`
	Args       []string      `json:"args"`
	Capture    *captureSpecs `json:"capture,omitempty"`
}

type transferSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type startSpec struct {
	Args []string `json:"args"`
}

func toCaptureSpec(mode CaptureMode) *captureSpec {
	switch mode {
	case CaptureStream:
		return &captureSpec{Stream: &outputFormat{Format: "str"}}
	case CaptureAtEnd:
		return &captureSpec{AtEnd: &outputFormat{Format: "str"}}
	default:
		return nil
	}
}

// MarshalBatch renders a batch as the exe-script understood by the provider.
func MarshalBatch(batch Batch) ([]byte, error) {
	script := make([]map[string]any, 0, len(batch))
	for i, command := range batch {
		var step map[string]any
		switch c := command.(type) {
		case Deploy:
			step = map[string]any{"deploy": struct{}{}}
		case Start:
			args := c.Args
			if args == nil {
				args = []string{}
			}
			step = map[string]any{"start": startSpec{Args: args}}
		case Run:
			spec := runSpec{EntryPoint: c.EntryPoint, Args: c.Args}
			if spec.Args == nil {
				spec.Args = []string{}
			}
			if c.Capture != nil {
				spec.Capture = &captureSpecs{
					Stdout: toCaptureSpec(c.Capture.Stdout),
					Stderr: toCaptureSpec(c.Capture.Stderr),
				}
			}
			step = map[string]any{"run": spec}
		case Transfer:
			step = map[string]any{"transfer": transferSpec{From: c.From, To: c.To}}
		default:
			return nil, fmt.Errorf("command %d: unsupported command type %T", i, command)
		}
		script = append(script, step)
	}
	return json.Marshal(script)
}
