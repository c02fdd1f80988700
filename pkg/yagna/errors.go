package yagna

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrAPI is a non 2xx answer of the daemon.
type ErrAPI struct {
	Op         string
	StatusCode int
	Message    string
}

func NewErrAPI(op string, statusCode int, message string) ErrAPI {
	return ErrAPI{Op: op, StatusCode: statusCode, Message: message}
}

func (e ErrAPI) Error() string {
	return fmt.Sprintf("%s: yagna answered %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsGone reports whether err says the addressed resource no longer exists,
// such as an expired subscription or a destroyed activity.
func IsGone(err error) bool {
	return hasStatus(err, http.StatusNotFound, http.StatusGone)
}

func isPollTimeout(err error) bool {
	return hasStatus(err, http.StatusRequestTimeout)
}

func hasStatus(err error, codes ...int) bool {
	var apiErr ErrAPI
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.StatusCode == code {
			return true
		}
	}
	return false
}
