package reqres

import "fmt"

// A PathTooLongError reports a request URL exceeding the server's configured
// maximum size.
type PathTooLongError struct {
	Size int
	Max  int
}

func (e *PathTooLongError) Error() string {
	return fmt.Sprintf("request URL is %d bytes, exceeding the %d byte maximum", e.Size, e.Max)
}

// A BodyTooLongError reports a form-encoded request body exceeding the
// server's configured maximum size.
type BodyTooLongError struct {
	Max int64
}

func (e *BodyTooLongError) Error() string {
	return fmt.Sprintf("request body exceeds the %d byte maximum", e.Max)
}

// A MalformedPathError reports a request path relay refuses to dispatch,
// either because a segment fails percent-decoding or because the path
// attempts directory traversal.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}
