package transfer

import (
	"context"
	"net/url"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
)

// Transport makes local files reachable by the provider.
type Transport interface {
	// Publish returns a URL the provider can download localPath from.
	Publish(ctx context.Context, localPath string) (*url.URL, error)
	// OpenForUpload returns a URL the provider can upload to; the upload is
	// stored at localPath.
	OpenForUpload(ctx context.Context, localPath string) (*url.URL, error)
	// Release forgets a URL returned by Publish or OpenForUpload.
	Release(ctx context.Context, u *url.URL)
}

// BatchExecutor runs a batch on the remote activity.
type BatchExecutor interface {
	Execute(ctx context.Context, batch activity.Batch) ([]activity.StepResult, error)
}

type TransfersParams struct {
	Transport Transport
	Executor  BatchExecutor
	// TempDir holds the staging files of JSON transfers. Empty means os.TempDir().
	TempDir string
}

const containerScheme = "container:"
