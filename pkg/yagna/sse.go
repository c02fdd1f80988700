package yagna

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
)

const maxEventSize = 4 << 20

type sseEvent struct {
	Name string
	Data []byte
}

// readEvents parses a text/event-stream body and calls fn for every event
// until fn returns false or the body ends.
func readEvents(r io.Reader, fn func(sseEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var current sseEvent
	var data [][]byte
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if len(data) > 0 {
				current.Data = bytes.Join(data, []byte("\n"))
				if !fn(current) {
					return nil
				}
			}
			current, data = sseEvent{}, nil
			continue
		}
		if line[0] == ':' {
			continue
		}
		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "event":
			current.Name = string(value)
		case "data":
			data = append(data, append([]byte(nil), value...))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(data) > 0 {
		current.Data = bytes.Join(data, []byte("\n"))
		fn(current)
	}
	return nil
}

type runtimeEventJSON struct {
	BatchID string                     `json:"batchId"`
	Index   int                        `json:"index"`
	Kind    map[string]json.RawMessage `json:"kind"`
}

type finishedJSON struct {
	ReturnCode int     `json:"returnCode"`
	Message    *string `json:"message"`
}

// decodeRuntimeEvent maps one runtime event payload to an activity event.
// Unknown kinds decode to nil.
func decodeRuntimeEvent(data []byte) (activity.RuntimeEvent, error) {
	var ev runtimeEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrap(err, "decoding runtime event")
	}
	for kind, raw := range ev.Kind {
		switch kind {
		case "started":
			return activity.Started{Index: ev.Index}, nil
		case "stdout":
			out, err := decodeOutput(raw)
			if err != nil {
				return nil, err
			}
			return activity.StdOut{Data: out}, nil
		case "stderr":
			out, err := decodeOutput(raw)
			if err != nil {
				return nil, err
			}
			return activity.StdErr{Data: out}, nil
		case "finished":
			var f finishedJSON
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, errors.Wrap(err, "decoding finished event")
			}
			return activity.Finished{Index: ev.Index, ReturnCode: f.ReturnCode, Message: f.Message}, nil
		}
	}
	return nil, nil
}

// decodeOutput accepts output as a plain string, {"str": "..."} or
// {"bin": [bytes]}.
func decodeOutput(raw json.RawMessage) ([]byte, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []byte(text), nil
	}
	var output struct {
		Str *string `json:"str"`
		Bin []int   `json:"bin"`
	}
	if err := json.Unmarshal(raw, &output); err != nil {
		return nil, errors.Wrap(err, "decoding output")
	}
	if output.Str != nil {
		return []byte(*output.Str), nil
	}
	out := make([]byte, len(output.Bin))
	for i, b := range output.Bin {
		out[i] = byte(b)
	}
	return out, nil
}
