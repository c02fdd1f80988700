package closer

import (
	"errors"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
)

// CloseWithLogOnError will close the given resource and log any relevant failure
func CloseWithLogOnError(name string, c io.Closer) {
	err := c.Close()
	if err == nil || errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrBodyReadAfterClose) {
		return
	}

	l := log.With().CallerWithSkipFrameCount(3).Logger()
	l.Err(err).Msgf("Failed to close %s", name)
}

// DrainAndCloseWithLogOnError discards whatever is left in the reader so the
// underlying connection can be reused, then closes it.
func DrainAndCloseWithLogOnError(name string, rc io.ReadCloser) {
	if _, err := io.Copy(io.Discard, rc); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Debug().Err(err).Msgf("Failed to drain %s", name)
	}
	err := rc.Close()
	if err == nil || errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) {
		return
	}

	l := log.With().CallerWithSkipFrameCount(3).Logger()
	l.Err(err).Msgf("Failed to close %s", name)
}
