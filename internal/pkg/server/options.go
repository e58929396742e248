package server

import "time"

const (
	defaultListen          = ":8050"
	defaultShutdownTimeout = 5 * time.Second
	defaultReadTimeout     = 10 * time.Second
)

// Option configures a [Server].
type Option func(*options)

type options struct {
	listen          string
	shutdownTimeout time.Duration
	readTimeout     time.Duration
}

// WithListen sets the address the server listens on.
func WithListen(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.listen = addr
		}
	}
}

// WithShutdownTimeout sets how long in-flight requests may run once the server is asked to stop.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = timeout
	}
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		listen:          defaultListen,
		shutdownTimeout: defaultShutdownTimeout,
		readTimeout:     defaultReadTimeout,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
