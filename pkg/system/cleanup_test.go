//go:build unit || !integration

package system

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/yagna-labs/zksync-requestor/pkg/logger"
)

type SystemCleanupSuite struct {
	suite.Suite
}

// In order for 'go test' to run this suite, we need to create
// a normal test function and pass our suite to suite.Run
func TestSystemCleanupSuite(t *testing.T) {
	suite.Run(t, new(SystemCleanupSuite))
}

// Before each test
func (suite *SystemCleanupSuite) SetupTest() {
	logger.ConfigureTestLogging(suite.T())
}

func (suite *SystemCleanupSuite) TestCleanupManager() {
	clean := false

	cm := NewCleanupManager()
	cm.RegisterCallback(func() error {
		clean = true
		return nil
	})

	require.NoError(suite.T(), cm.Cleanup(context.Background()))
	require.True(suite.T(), clean, "cleanup handler failed to run registered functions")
}

func (suite *SystemCleanupSuite) TestCleanupCollectsErrors() {
	var calls atomic.Int32
	cm := NewCleanupManager()
	cm.RegisterCallback(func() error {
		calls.Add(1)
		return errors.New("first")
	})
	cm.RegisterCallbackWithContext(func(context.Context) error {
		calls.Add(1)
		return context.Canceled
	})
	cm.RegisterCallback(func() error {
		calls.Add(1)
		return errors.New("second")
	})

	err := cm.Cleanup(context.Background())
	require.Error(suite.T(), err)
	require.Contains(suite.T(), err.Error(), "first")
	require.Contains(suite.T(), err.Error(), "second")
	require.NotContains(suite.T(), err.Error(), "canceled")
	require.Equal(suite.T(), int32(3), calls.Load())
}

func (suite *SystemCleanupSuite) TestCleanupRunsOnce() {
	var calls atomic.Int32
	cm := NewCleanupManager()
	cm.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(suite.T(), cm.Cleanup(context.Background()))
	require.NoError(suite.T(), cm.Cleanup(context.Background()))
	cm.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})
	require.Equal(suite.T(), int32(1), calls.Load())
}

func (suite *SystemCleanupSuite) TestWriteFileCreatingDirs() {
	path := filepath.Join(suite.T().TempDir(), "blocks", "nested", "block-1.json")
	require.NoError(suite.T(), WriteFileCreatingDirs(path, []byte(`{}`)))

	exists, err := PathExists(path)
	require.NoError(suite.T(), err)
	require.True(suite.T(), exists)
}
