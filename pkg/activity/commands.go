package activity

// Command is one remote instruction. The set is closed: Deploy, Start, Run and Transfer.
type Command interface {
	// Name is the command's wire name, used in logs and errors.
	Name() string
	isCommand()
}

// Batch is an ordered list of commands executed one after the other.
// The first failing command aborts the rest of the batch.
type Batch []Command

// Deploy prepares the workload image on the provider.
type Deploy struct{}

// Start boots the deployed runtime.
type Start struct {
	Args []string
}

// Run executes an entry point inside the runtime.
type Run struct {
	EntryPoint string
	Args       []string
	Capture    *Capture
}

// Transfer copies a resource between two URLs, one of them usually a container: path.
type Transfer struct {
	From string
	To   string
}

func (Deploy) Name() string   { return "deploy" }
func (Start) Name() string    { return "start" }
func (Run) Name() string      { return "run" }
func (Transfer) Name() string { return "transfer" }

func (Deploy) isCommand()   {}
func (Start) isCommand()    {}
func (Run) isCommand()      {}
func (Transfer) isCommand() {}

type CaptureMode int

const (
	// CaptureNone discards the output stream.
	CaptureNone CaptureMode = iota
	// CaptureStream delivers output as runtime events while the command runs.
	CaptureStream
	// CaptureAtEnd returns output with the command's result.
	CaptureAtEnd
)

// Capture selects how the output streams of a Run are reported.
type Capture struct {
	Stdout CaptureMode
	Stderr CaptureMode
}

// StreamingCapture streams both stdout and stderr.
func StreamingCapture() *Capture {
	return &Capture{Stdout: CaptureStream, Stderr: CaptureStream}
}
