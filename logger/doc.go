// Package logger defines the observability interface relay components accept
// and a couple of implementations of it.
//
// The dispatch core never constructs its own logging state; a [Logger] is
// injected into servers, pipelines and session registries at construction.
// [New] returns a sensible default writing to os.Stdout, upgraded to a
// Sentry-reporting variant when SENTRY_DSN is set.
package logger
