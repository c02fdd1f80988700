package transfer

import "fmt"

// ErrTransferFailed is returned when a file or value could not be moved
// between the requestor and the provider.
type ErrTransferFailed struct {
	Src   string
	Dst   string
	Cause error
}

func NewErrTransferFailed(src, dst string, cause error) ErrTransferFailed {
	return ErrTransferFailed{Src: src, Dst: dst, Cause: cause}
}

func (e ErrTransferFailed) Error() string {
	return fmt.Sprintf("transfer from %s to %s failed: %s", e.Src, e.Dst, e.Cause)
}

func (e ErrTransferFailed) Unwrap() error {
	return e.Cause
}
