//go:build unit || !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	Reset()
}

func (s *ConfigSuite) TearDownTest() {
	Reset()
}

func (s *ConfigSuite) TestDefaults() {
	s.Require().NoError(Init(s.T().TempDir()))

	cfg, err := GetConfig()
	s.Require().NoError(err)
	s.Equal(Default.Market, cfg.Market)
	s.Equal(Default.Worker, cfg.Worker)
	s.Equal(Default.TaskQueue.Backoff, cfg.TaskQueue.Backoff)
	s.Equal(512*datasize.MB, cfg.Transfer.MaxUploadSize)
	s.Equal("http://0.0.0.0:7466", cfg.Transfer.PublicURL)
}

func (s *ConfigSuite) TestEnvironmentOverrides() {
	s.T().Setenv("ZKSYNC_REQUESTOR_WORKER_SIZES", "6,30")
	s.T().Setenv("ZKSYNC_REQUESTOR_TASKQUEUE_REQUESTTIMEOUT", "5s")
	s.T().Setenv("ZKSYNC_REQUESTOR_TRANSFER_MAXUPLOADSIZE", "1GB")
	s.T().Setenv("SUBNET", "public")
	s.T().Setenv("YAGNA_APPKEY", "secret")
	s.T().Setenv("SERVER_API_URL", "http://queue:3030")
	s.T().Setenv("LOG_LEVEL", "debug")
	s.Require().NoError(Init(s.T().TempDir()))

	cfg, err := GetConfig()
	s.Require().NoError(err)
	s.Equal([]int{6, 30}, cfg.Worker.Sizes)
	s.Equal(5*time.Second, cfg.TaskQueue.RequestTimeout)
	s.Equal(datasize.GB, cfg.Transfer.MaxUploadSize)
	s.Equal("public", cfg.Market.Subnet)
	s.Equal("secret", cfg.Yagna.AppKey)
	s.Equal("http://queue:3030", cfg.TaskQueue.ServerURL)
	s.Equal("debug", cfg.Logging.Level)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestConfigFile() {
	dir := s.T().TempDir()
	content := []byte("Market:\n  Subnet: from-file\nWorker:\n  RetryDelay: 3s\n")
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))
	s.Require().NoError(Init(dir))

	cfg, err := GetConfig()
	s.Require().NoError(err)
	s.Equal("from-file", cfg.Market.Subnet)
	s.Equal(3*time.Second, cfg.Worker.RetryDelay)
}

func (s *ConfigSuite) TestValidate() {
	cfg := Default
	cfg.TaskQueue.ServerURL = "http://localhost:3030"
	cfg.Yagna.AppKey = "key"
	s.NoError(cfg.Validate())

	bad := cfg
	bad.Yagna.AppKey = ""
	bad.Worker.Sizes = []int{6, 6, -1}
	err := bad.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), "app key")
	s.Contains(err.Error(), "unique")
	s.Contains(err.Error(), "positive")

	noSizes := cfg
	noSizes.Worker.Sizes = nil
	s.Error(noSizes.Validate())
}

func (s *ConfigSuite) TestKeyAsEnvVar() {
	s.Equal("ZKSYNC_REQUESTOR_TASKQUEUE_BACKOFF_MAXELAPSEDTIME", KeyAsEnvVar(TaskQueueBackoffMaxElapsedTime))
}
