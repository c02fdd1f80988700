//go:build unit || !integration

package yagna

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
)

func TestReadEvents(t *testing.T) {
	body := ": keep-alive\n\nevent: runtime\ndata: {\"a\":\ndata: 1}\n\nevent: other\ndata:x\n\ndata: tail"
	var events []sseEvent
	require.NoError(t, readEvents(strings.NewReader(body), func(ev sseEvent) bool {
		events = append(events, ev)
		return true
	}))

	require.Len(t, events, 3)
	assert.Equal(t, "runtime", events[0].Name)
	assert.Equal(t, "{\"a\":\n1}", string(events[0].Data))
	assert.Equal(t, "other", events[1].Name)
	assert.Equal(t, "x", string(events[1].Data))
	assert.Equal(t, "", events[2].Name)
	assert.Equal(t, "tail", string(events[2].Data))
}

func TestReadEventsStopsWhenAsked(t *testing.T) {
	body := "data: 1\n\ndata: 2\n\n"
	count := 0
	require.NoError(t, readEvents(strings.NewReader(body), func(sseEvent) bool {
		count++
		return false
	}))
	assert.Equal(t, 1, count)
}

func TestDecodeRuntimeEvent(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
		want activity.RuntimeEvent
	}{
		{"started", `{"index":2,"kind":{"started":{"command":{"run":{}}}}}`, activity.Started{Index: 2}},
		{"stdout string", `{"kind":{"stdout":"abc"}}`, activity.StdOut{Data: []byte("abc")}},
		{"stdout str", `{"kind":{"stdout":{"str":"abc"}}}`, activity.StdOut{Data: []byte("abc")}},
		{"stderr bin", `{"kind":{"stderr":{"bin":[0,255]}}}`, activity.StdErr{Data: []byte{0, 255}}},
		{"finished", `{"index":1,"kind":{"finished":{"returnCode":0,"message":null}}}`, activity.Finished{Index: 1}},
		{"unknown", `{"kind":{"something":{}}}`, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeRuntimeEvent([]byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := decodeRuntimeEvent([]byte(`not json`))
	assert.Error(t, err)
}
