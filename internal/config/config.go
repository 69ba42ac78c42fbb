// Package config loads grayblend settings from files, environment variables
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"grayblend/pkg/imgutil"
)

// Config is the resolved configuration shared by every command.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Intensity is the default blend weight, 0-100.
	Intensity int `mapstructure:"intensity" yaml:"intensity" json:"intensity" validate:"min=0,max=100"`
	// Workers bounds per-batch parallelism; 0 means one per CPU.
	Workers    int  `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=0"`
	AutoOrient bool `mapstructure:"auto_orient" yaml:"auto_orient" json:"auto_orient"`
	// MaxPixels rejects images whose declared width*height exceeds it.
	MaxPixels int `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels" validate:"min=1"`

	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// OutputConfig controls where CLI artifacts are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port" validate:"min=1,max=65535"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb" validate:"min=1"`
	MaxFiles        int    `mapstructure:"max_files" yaml:"max_files" json:"max_files" validate:"min=1"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec" validate:"min=1"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		Intensity:  100,
		AutoOrient: true,
		MaxPixels:  imgutil.DefaultMaxPixels,
		Output: OutputConfig{
			Dir: "grayblend-out",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			MaxFiles:        100,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	case "required":
		return field + " is required"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// SlogLevel maps LogLevel to the names slog understands, with Verbose
// forcing debug.
func (c *Config) SlogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}
