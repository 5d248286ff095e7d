package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mikaelmello/icmprobe/core"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ICMPROBE"

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// newConfig returns a viper instance holding the defaults of every key, overridable by
// ICMPROBE_* environment variables.
func newConfig() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", log.WarnLevel.String())
	v.SetDefault("ttl", 64)
	v.SetDefault("ping.count", 4)
	v.SetDefault("ping.interval", time.Second)
	v.SetDefault("ping.timeout", time.Second)
	v.SetDefault("traceroute.max_hops", 30)
	v.SetDefault("traceroute.tries", 4)
	v.SetDefault("traceroute.timeout", 2*time.Second)
	v.SetDefault("format", formatText)
	v.SetDefault("progress", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// readConfigFile merges the file at path into v, any format viper understands.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error while reading config file %s: %w", path, err)
	}

	return nil
}

// bindFlag binds key to flag, panicking on programming errors only.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadSettings builds the settings shared by every command.
func loadSettings(v *viper.Viper) (*core.Settings, error) {
	settings := core.DefaultSettings()

	level, err := log.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	settings.LoggingLevel = uint32(level)

	id, err := loadIdentifier(v)
	if err != nil {
		return nil, err
	}
	settings.Identifier = id

	settings.TTL = v.GetInt("ttl")

	return settings, nil
}

// loadIdentifier returns the configured identifier, or one derived from the process id.
func loadIdentifier(v *viper.Viper) (uint16, error) {
	if !v.IsSet("identifier") {
		return uint16(os.Getpid() & 0xffff), nil
	}

	id := v.GetInt("identifier")
	if id < 0 || id > 0xffff {
		return 0, fmt.Errorf("identifier %d must be between 0 and %d", id, 0xffff)
	}

	return uint16(id), nil
}

func loadPingSettings(v *viper.Viper) (*core.Settings, error) {
	settings, err := loadSettings(v)
	if err != nil {
		return nil, err
	}

	settings.Count = v.GetInt("ping.count")
	settings.Interval = v.GetDuration("ping.interval")
	settings.Timeout = v.GetDuration("ping.timeout")

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

func loadTracerouteSettings(v *viper.Viper) (*core.Settings, error) {
	settings, err := loadSettings(v)
	if err != nil {
		return nil, err
	}

	settings.MaxHops = v.GetInt("traceroute.max_hops")
	settings.Tries = v.GetInt("traceroute.tries")
	settings.Timeout = v.GetDuration("traceroute.timeout")

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// loadFormat returns the configured output format.
func loadFormat(v *viper.Viper) (string, error) {
	format := strings.ToLower(v.GetString("format"))

	switch format {
	case formatText, formatJSON, formatYAML:
		return format, nil
	}

	return "", fmt.Errorf("unknown output format %q, expected one of %s, %s or %s",
		format, formatText, formatJSON, formatYAML)
}
