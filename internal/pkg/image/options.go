package image //nolint:revive // it's okay for an internal package to use this name

import (
	"time"

	"github.com/fredbi/trackviz/internal/pkg/config"
)

// Option to tune image rendering.
type Option func(*options)

type options struct {
	Height        int64
	Width         int64
	SleepDuration time.Duration
	Timeout       time.Duration
	WaitSelector  string
}

const (
	defaultHeight  int64 = 1080
	defaultWidth   int64 = 1920
	defaultWait          = time.Second
	defaultTimeout       = 30 * time.Second
)

func optionsWithDefaults(opts []Option) options {
	o := options{
		Height:        defaultHeight,
		Width:         defaultWidth,
		SleepDuration: defaultWait,
		Timeout:       defaultTimeout,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// WithScreenshot applies the screenshot settings of the rendering configuration.
func WithScreenshot(s config.Screenshot) Option {
	return func(o *options) {
		WithHeight(s.Height)(o)
		WithWidth(s.Width)(o)
		WithSleep(s.SleepDuration())(o)
	}
}

// WithHeight sets the height of the screenshot.
//
// Defaults to 1080.
func WithHeight(height int64) Option {
	return func(o *options) {
		if height <= 0 {
			return
		}

		o.Height = height
	}
}

// WithWidth sets the width of the screenshot.
//
// Defaults to 1920.
func WithWidth(width int64) Option {
	return func(o *options) {
		if width <= 0 {
			return
		}

		o.Width = width
	}
}

// WithSleep sets the time to wait for the chrome headless engine to render the charts,
// once the page is loaded.
//
// Defaults to 1s.
func WithSleep(sleep time.Duration) Option {
	return func(o *options) {
		if sleep <= 0 {
			return
		}

		o.SleepDuration = sleep
	}
}

// WithTimeout bounds the whole screenshot operation.
//
// Defaults to 30s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout <= 0 {
			return
		}

		o.Timeout = timeout
	}
}

// WithWaitSelector waits for an element to be visible before taking the screenshot,
// e.g. "canvas" for echarts pages.
func WithWaitSelector(selector string) Option {
	return func(o *options) {
		o.WaitSelector = selector
	}
}
