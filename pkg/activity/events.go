package activity

// RuntimeEvent is emitted by a running batch. The set is closed:
// Started, StdOut, StdErr and Finished, which is always last.
type RuntimeEvent interface {
	isRuntimeEvent()
}

// Started reports that the command at Index began executing.
type Started struct {
	Index int
}

type StdOut struct {
	Data []byte
}

type StdErr struct {
	Data []byte
}

// Finished ends the stream. A non-zero ReturnCode is the workload's own exit status.
type Finished struct {
	Index      int
	ReturnCode int
	Message    *string
}

func (Started) isRuntimeEvent()  {}
func (StdOut) isRuntimeEvent()   {}
func (StdErr) isRuntimeEvent()   {}
func (Finished) isRuntimeEvent() {}

// MessageOrEmpty returns the finish message, or "" when there is none.
func (f Finished) MessageOrEmpty() string {
	if f.Message == nil {
		return ""
	}
	return *f.Message
}
