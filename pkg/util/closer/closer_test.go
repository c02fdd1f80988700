//go:build unit || !integration

package closer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseWithLogOnError_noErrors(t *testing.T) {
	old := log.Logger
	t.Cleanup(func() {
		log.Logger = old
	})

	var b bytes.Buffer
	log.Logger = log.Output(&b)
	CloseWithLogOnError(t.Name(), closer{nil})
	assert.Equal(t, "", b.String())
}

func TestCloseWithLogOnError_logsErrors(t *testing.T) {
	old := log.Logger
	t.Cleanup(func() {
		log.Logger = old
	})

	var b bytes.Buffer
	log.Logger = log.With().Str("foo", "bar").Logger().Output(&b)

	CloseWithLogOnError(t.Name(), closer{fmt.Errorf("error message")})

	var content map[string]string
	require.NoError(t, json.Unmarshal(b.Bytes(), &content))

	assert.Equal(t, "bar", content["foo"])
	assert.NotEmpty(t, content["message"])
	assert.NotEmpty(t, content["caller"])
	assert.True(t, strings.Contains(content["caller"], "closer/closer_test.go:"), "%s should point to the function call", content["caller"])
}

func TestCloseWithLogOnError_ignoresAlreadyClosed(t *testing.T) {
	tests := []error{os.ErrClosed, net.ErrClosed}
	for _, test := range tests {
		t.Run(test.Error(), func(t *testing.T) {
			old := log.Logger
			t.Cleanup(func() {
				log.Logger = old
			})

			var b bytes.Buffer
			log.Logger = log.Output(&b)
			CloseWithLogOnError(t.Name(), closer{test})
			assert.Equal(t, "", b.String())
		})
	}
}

func TestDrainAndCloseWithLogOnError(t *testing.T) {
	rc := &readCloser{Reader: strings.NewReader("leftover body")}
	DrainAndCloseWithLogOnError(t.Name(), rc)
	assert.True(t, rc.closed)
	n, _ := rc.Read(make([]byte, 1))
	assert.Zero(t, n)
}

var _ io.Closer = closer{}

type closer struct {
	err error
}

func (c closer) Close() error {
	return c.err
}

type readCloser struct {
	io.Reader
	closed bool
}

func (r *readCloser) Close() error {
	r.closed = true
	return nil
}
