package cmd

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	config "github.com/openxt/govgt/configuration"
	"github.com/openxt/govgt/internal/display"
	"github.com/openxt/govgt/internal/sysfs"
)

var (
	configFile  string
	controlRoot string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "vgtctl",
	Short: "Control plane for GVT virtual displays",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfiguration(cmd, configFile); err != nil {
			return err
		}

		zap.ReplaceGlobals(setupLogger())

		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&controlRoot, "control-root", sysfs.DefaultRoot, "vgt control interface root")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
}

// newManager builds the display manager over the configured control
// root.
func newManager() *display.Manager {
	return display.New(sysfs.New(afero.NewOsFs(), config.GetControlRoot()))
}

func setupLogger() *zap.Logger {
	loggerCfg := &zap.Config{
		Level:    zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if level, err := zapcore.ParseLevel(config.GetLogLevel()); err == nil {
		loggerCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := loggerCfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
