package worker

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
	"github.com/yagna-labs/zksync-requestor/pkg/util/closer"
)

// runOutput collects the output of one prover run: it is mirrored into the
// debug files and stdout drives the progress bar.
type runOutput struct {
	sinks activity.Sinks
	files []*os.File
	bar   *pb.ProgressBar
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (w *Worker) openOutput(ctx context.Context) *runOutput {
	out := &runOutput{}
	var stdout, stderr []io.Writer

	if w.debugDir != "" {
		if f := openDebugFile(ctx, filepath.Join(w.debugDir, w.stdoutFile)); f != nil {
			out.files = append(out.files, f)
			stdout = append(stdout, f)
		}
		if f := openDebugFile(ctx, filepath.Join(w.debugDir, w.stderrFile)); f != nil {
			out.files = append(out.files, f)
			stderr = append(stderr, f)
		}
	}
	if w.showProgress && w.progressMax > 0 {
		out.bar = pb.New64(w.progressMax).SetTemplate(pb.Simple).SetWriter(os.Stderr).Start()
		stdout = append(stdout, out.bar.NewProxyWriter(io.Discard))
	}

	out.sinks = activity.Sinks{Stdout: joinWriters(stdout), Stderr: joinWriters(stderr)}
	return out
}

func joinWriters(writers []io.Writer) io.Writer {
	switch len(writers) {
	case 0:
		return nil
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

// openDebugFile truncates path for a new run. A file that cannot be opened
// only costs the debug copy.
func openDebugFile(ctx context.Context, path string) *os.File {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msgf("cannot create directory for %s", path)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msgf("cannot open %s, output will not be saved", path)
		return nil
	}
	return f
}

func (o *runOutput) Close() {
	if o.bar != nil {
		o.bar.SetCurrent(o.bar.Total())
		o.bar.Finish()
	}
	for _, f := range o.files {
		closer.CloseWithLogOnError(f.Name(), f)
	}
}

// saveDebugCopy stores v as JSON under the debug directory. Failures are
// logged and never fail the cycle.
func (w *Worker) saveDebugCopy(ctx context.Context, relPath string, v any) {
	if w.debugDir == "" {
		return
	}
	path := filepath.Join(w.debugDir, relPath)
	data, err := json.Marshal(v)
	if err == nil {
		err = system.WriteFileCreatingDirs(path, data)
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msgf("failed to save debug copy %s", path)
	}
}
