package logger

import "log"

// An OptFn is a functional option configuring a RelayLogger when constructing a new one.
type OptFn func(*RelayLogger)

// WithEnv sets the environment RelayLogger is operating in.
func WithEnv(env string) OptFn {
	return func(l *RelayLogger) {
		l.env = env
	}
}

// WithLevel sets the log level RelayLogger uses.
func WithLevel(level LogLevel) OptFn {
	return func(l *RelayLogger) {
		l.ll = level
	}
}

// WithLogger sets the log.Logger RelayLogger uses.
func WithLogger(log *log.Logger) OptFn {
	return func(l *RelayLogger) {
		l.l = log
	}
}

// WithSkip sets the number of frames in the call stack
// to skip in order to log the desired file and line number
// of the calling code.
func WithSkip(skip int) OptFn {
	return func(l *RelayLogger) {
		l.skip = skip
	}
}
