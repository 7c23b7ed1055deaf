package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-btrfs/internal/config"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Merged settings from file, environment and flags
	Config *config.Config

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Report destination, stdout unless replaced
	Out io.Writer

	// Common timeouts
	DefaultTimeout time.Duration
}

// NewContext creates a new application context
func NewContext(cfg *config.Config) *Context {
	return &Context{
		Context:        context.Background(),
		Config:         cfg,
		OutputFormat:   cfg.OutputFormat,
		Out:            os.Stdout,
		DefaultTimeout: 5 * time.Minute,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// ConfigureLogging sets the global logrus level from the verbosity flags, falling back
// to the configured level. Diagnostics always go to stderr.
func (c *Context) ConfigureLogging() {
	logrus.SetOutput(os.Stderr)
	switch {
	case c.Quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case c.Verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		level, err := logrus.ParseLevel(c.Config.LogLevel)
		if err != nil {
			level = logrus.WarnLevel
		}
		logrus.SetLevel(level)
	}
}
