package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

// config is the merged view of flags, SHERWOOD_* environment variables and
// the optional config file, in that order of precedence.
type config struct {
	LogLevel    string `mapstructure:"log-level"`
	LogFile     string `mapstructure:"log-file"`
	Task        string `mapstructure:"task"`
	Input       string `mapstructure:"input"`
	Labels      string `mapstructure:"labels"`
	Dims        int    `mapstructure:"dims"`
	Output      string `mapstructure:"output"`
	Forest      string `mapstructure:"forest"`
	Split       string `mapstructure:"split"`
	Leaf        string `mapstructure:"leaf"`
	Seed        uint64 `mapstructure:"seed"`
	Parallel    bool   `mapstructure:"parallel"`
	Workers     int    `mapstructure:"workers"`
	MetricsFile string `mapstructure:"metrics-file"`
	Scored      bool   `mapstructure:"scored"`
	Tree        int    `mapstructure:"tree"`
	Format      string `mapstructure:"format"`

	Training forest.TrainingParameters `mapstructure:",squash"`
}

func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHERWOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &config{Training: forest.DefaultTrainingParameters()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// setupLogging routes the package-wide logger to stderr or to a rotating
// log file. The returned function closes the file.
func setupLogging(cfg *config, stderr io.Writer) (func(), error) {
	w, cleanup := stderr, func() {}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, cleanup = file, func() { _ = file.Close() }
	}
	if err := log.SetupLogger(w, cfg.LogLevel); err != nil {
		return nil, err
	}
	return cleanup, nil
}
