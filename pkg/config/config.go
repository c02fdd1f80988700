package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	environmentVariablePrefix = "ZKSYNC_REQUESTOR"

	configType = "yaml"
	configName = "config"

	DefaultDirName = ".zksync-requestor"
)

var (
	environmentVariableReplace = strings.NewReplacer(".", "_")
	DecoderHook                = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
)

// DefaultDir returns the directory config.yaml is looked up in when none is given.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// Init prepares the global viper instance: defaults, environment binding and the
// optional config.yaml found in path. Flags are bound separately by the commands.
func Init(path string) error {
	viper.AddConfigPath(path)
	viper.SetConfigName(configName)
	viper.SetConfigType(configType)
	viper.SetEnvPrefix(environmentVariablePrefix)
	viper.SetEnvKeyReplacer(environmentVariableReplace)
	SetDefault(Default)

	for key, legacy := range legacyEnvVars {
		if err := viper.BindEnv(key, KeyAsEnvVar(key), legacy); err != nil {
			return errors.Wrapf(err, "binding %s", legacy)
		}
	}
	viper.AutomaticEnv()

	return ReadConfigHandler(filepath.Join(path, fmt.Sprintf("%s.%s", configName, configType)))
}

// ReadConfigHandler reads fileName into viper when it exists.
func ReadConfigHandler(fileName string) error {
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		// if the config file doesn't exist that's fine, we will just use default configuration values
		return nil
	} else if err != nil {
		return err
	}
	// else we will read values set from the config, and accept those over the default values.
	return viper.ReadInConfig()
}

// GetConfig returns the current resolved configuration from viper.
// This is the resolved configuration after all configuration sources have been merged,
// including the default configuration, the configuration file, environment variables, and flags.
func GetConfig() (RequestorConfig, error) {
	var out RequestorConfig
	if err := viper.Unmarshal(&out, DecoderHook); err != nil {
		return RequestorConfig{}, errors.Wrap(err, "decoding configuration")
	}
	if out.Transfer.PublicURL == "" {
		out.Transfer.PublicURL = "http://" + out.Transfer.ListenAddress
	}
	return out, nil
}

func Reset() {
	viper.Reset()
}

// KeyAsEnvVar returns the environment variable corresponding to a config key
func KeyAsEnvVar(key string) string {
	return strings.ToUpper(
		fmt.Sprintf("%s_%s", environmentVariablePrefix, environmentVariableReplace.Replace(key)),
	)
}

// Validate reports every setting that would stop the requestor from working.
func (c RequestorConfig) Validate() error {
	var problems []string
	if c.TaskQueue.ServerURL == "" {
		problems = append(problems, "task queue server URL is required (--server-url or SERVER_API_URL)")
	} else if _, err := url.ParseRequestURI(c.TaskQueue.ServerURL); err != nil {
		problems = append(problems, fmt.Sprintf("task queue server URL is invalid: %s", err))
	}
	if c.TaskQueue.WorkerName == "" {
		problems = append(problems, "worker name must not be empty")
	}
	if c.Yagna.AppKey == "" {
		problems = append(problems, "yagna app key is required (--app-key or YAGNA_APPKEY)")
	}
	if c.Market.Subnet == "" {
		problems = append(problems, "subnet must not be empty")
	}
	if c.Market.Deadline <= 0 {
		problems = append(problems, "negotiation deadline must be positive")
	}
	if len(c.Worker.Sizes) == 0 {
		problems = append(problems, "at least one block size class is required")
	}
	if lo.ContainsBy(c.Worker.Sizes, func(size int) bool { return size <= 0 }) {
		problems = append(problems, "block size classes must be positive")
	}
	if dups := lo.FindDuplicates(c.Worker.Sizes); len(dups) > 0 {
		problems = append(problems, fmt.Sprintf("block size classes must be unique, repeated: %v", dups))
	}
	if c.TaskQueue.Backoff.Multiplier < 1 {
		problems = append(problems, "backoff multiplier must be at least 1")
	}
	if c.TaskQueue.Backoff.InitialInterval <= 0 || c.TaskQueue.Backoff.MaxInterval < c.TaskQueue.Backoff.InitialInterval {
		problems = append(problems, "backoff intervals must be positive with max >= initial")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
