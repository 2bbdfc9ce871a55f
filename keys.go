package relay

// A Key stashes relay-owned values in a request's key-value store
// without colliding with application keys.
type Key string

const (
	// RequestIDKey stashes a unique UUID for each HTTP request.
	RequestIDKey Key = "RequestIDKey"

	// SessionKey stashes the session resumed for an HTTP request.
	SessionKey Key = "SessionKey"

	// RemoteAddrKey stashes the remote address of an HTTP request being dispatched by relay.
	RemoteAddrKey Key = "RemoteAddrKey"
)

// String formats the stringified key with additional contextual information
func (k Key) String() string {
	return "relay context key: " + string(k)
}
