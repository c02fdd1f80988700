package transfer

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

// Transfers moves files and JSON values in and out of the provider's
// container. Remote paths are absolute paths inside the container.
type Transfers struct {
	transport Transport
	executor  BatchExecutor
	tempDir   string
}

func NewTransfers(params TransfersParams) *Transfers {
	tempDir := params.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Transfers{
		transport: params.Transport,
		executor:  params.Executor,
		tempDir:   tempDir,
	}
}

// ContainerPath returns the location of remotePath as understood by the
// provider's transfer command.
func ContainerPath(remotePath string) (string, error) {
	if !path.IsAbs(remotePath) {
		return "", errors.Errorf("remote path %q must be absolute", remotePath)
	}
	return containerScheme + path.Clean(remotePath), nil
}

// SendFile copies the local file src to remotePath on the provider.
func (t *Transfers) SendFile(ctx context.Context, src, remotePath string) (err error) {
	ctx, span := telemetry.NewSpan(ctx, "transfer", "SendFile")
	defer span.End()
	defer func() {
		if err != nil {
			err = telemetry.RecordErrorOnSpan(span)(NewErrTransferFailed(src, remotePath, err))
		}
	}()

	dst, err := ContainerPath(remotePath)
	if err != nil {
		return err
	}
	exists, err := system.PathExists(src)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Errorf("%s does not exist", src)
	}
	u, err := t.transport.Publish(ctx, src)
	if err != nil {
		return errors.Wrap(err, "publishing")
	}
	defer t.transport.Release(ctx, u)

	if _, err = t.executor.Execute(ctx, activity.Batch{activity.Transfer{From: u.String(), To: dst}}); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Msgf("sent %s to %s", src, remotePath)
	return nil
}

// ReceiveFile copies remotePath on the provider to the local file dst.
// dst is only created once the whole file arrived.
func (t *Transfers) ReceiveFile(ctx context.Context, remotePath, dst string) (err error) {
	ctx, span := telemetry.NewSpan(ctx, "transfer", "ReceiveFile")
	defer span.End()
	defer func() {
		if err != nil {
			err = telemetry.RecordErrorOnSpan(span)(NewErrTransferFailed(remotePath, dst, err))
		}
	}()

	src, err := ContainerPath(remotePath)
	if err != nil {
		return err
	}
	u, err := t.transport.OpenForUpload(ctx, dst)
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer t.transport.Release(ctx, u)

	if _, err = t.executor.Execute(ctx, activity.Batch{activity.Transfer{From: src, To: u.String()}}); err != nil {
		return err
	}
	exists, err := system.PathExists(dst)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("provider reported success but nothing was uploaded")
	}
	log.Ctx(ctx).Debug().Msgf("received %s into %s", remotePath, dst)
	return nil
}

// SendJSON serializes v and stores it at remotePath on the provider.
func (t *Transfers) SendJSON(ctx context.Context, remotePath string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewErrTransferFailed("value", remotePath, errors.Wrap(err, "serializing"))
	}
	staged, release, err := t.staging(ctx)
	if err != nil {
		return NewErrTransferFailed("value", remotePath, err)
	}
	defer release()

	if err = os.WriteFile(staged, data, 0o600); err != nil {
		return NewErrTransferFailed("value", remotePath, errors.Wrap(err, "writing staging file"))
	}
	return t.SendFile(ctx, staged, remotePath)
}

// ReceiveJSON reads remotePath from the provider and decodes it into out.
func (t *Transfers) ReceiveJSON(ctx context.Context, remotePath string, out any) error {
	staged, release, err := t.staging(ctx)
	if err != nil {
		return NewErrTransferFailed(remotePath, "value", err)
	}
	defer release()

	if err = t.ReceiveFile(ctx, remotePath, staged); err != nil {
		return err
	}
	data, err := os.ReadFile(staged)
	if err != nil {
		return NewErrTransferFailed(remotePath, "value", err)
	}
	if err = json.Unmarshal(data, out); err != nil {
		return NewErrTransferFailed(remotePath, "value", errors.Wrap(err, "deserializing"))
	}
	return nil
}

// staging reserves a path for a JSON value inside a fresh directory. The
// returned func removes the directory and everything in it.
func (t *Transfers) staging(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp(t.tempDir, "transfer-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating staging directory")
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msgf("failed to remove staging directory %s", dir)
		}
	}
	return filepath.Join(dir, "value.json"), release, nil
}
