package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openxt/govgt/internal/entity"
	"github.com/openxt/govgt/internal/sysfs"
)

const (
	prefix      = "VGT"
	logLevel    = "LOG_LEVEL"
	controlRoot = "CONTROL_ROOT"

	apertureSize = "APERTURE_SIZE"
	gmSize       = "GM_SIZE"
	fenceCount   = "FENCE_COUNT"
)

var v *viper.Viper

func InitConfiguration(cmd *cobra.Command, configFile string) error {
	v = viper.New()

	v.SetEnvPrefix(prefix)
	v.AutomaticEnv() // read in environment variables that match

	if len(configFile) > 0 {
		zap.S().Infof("using config file: %v", configFile)
		v.SetConfigFile(configFile)

		err := v.ReadInConfig()
		if err != nil {
			zap.S().Errorw("error", err, "config file", configFile)
			return fmt.Errorf("fail to read config file")
		}
	}

	// Bind the current command's flags to viper
	bindFlags(cmd, v)

	return nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// replace - with _ to match yaml format
		flagName := f.Name
		if strings.Contains(f.Name, "-") {
			// Environment variables can't have dashes in them, so bind them to their equivalent
			// keys with underscores.
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			v.BindEnv(f.Name, fmt.Sprintf("%s_%s", prefix, envVarSuffix))
			flagName = strings.ReplaceAll(f.Name, "-", "_")
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		// and the other way around.
		if !f.Changed && v.IsSet(flagName) {
			val := v.Get(flagName)
			cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		} else if f.Changed && !v.IsSet(flagName) {
			v.Set(flagName, f.Value)
		}
	})
}

func GetControlRoot() string {
	if !v.IsSet(controlRoot) {
		return sysfs.DefaultRoot
	}

	return v.GetString(controlRoot)
}

func GetLogLevel() string {
	if !v.IsSet(logLevel) {
		return "info"
	}

	return v.GetString(logLevel)
}

// GetInstanceConfig returns the instance sizing, falling back to the
// suggested desktop-guest defaults.
func GetInstanceConfig() entity.InstanceConfig {
	cfg := entity.DefaultInstanceConfig()

	if v.IsSet(apertureSize) {
		cfg.ApertureMiB = v.GetUint(apertureSize)
	}
	if v.IsSet(gmSize) {
		cfg.GMMiB = v.GetUint(gmSize)
	}
	if v.IsSet(fenceCount) {
		cfg.FenceCount = v.GetUint(fenceCount)
	}

	return cfg
}
