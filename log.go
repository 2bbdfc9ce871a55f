package relay

import "log/slog"

const (
	LogKindKey = "kind"
	LogMaskVal = "xxxxxx"
)

var (
	DispatchLogKind = slog.StringValue("dispatch")
	SessionLogKind  = slog.StringValue("session")
	ServerLogKind   = slog.StringValue("server")

	// MaskedLogValue is a convenience [log/slog.Value]
	// to be used in implementations of [log/slog.LogValuer]
	// to hide sensitive data, session tokens chief among it,
	// from log messages.
	MaskedLogValue = slog.StringValue(LogMaskVal)
)
