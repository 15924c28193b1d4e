package elementary

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/elementary/internal/errcode"
)

// Error wraps an errcode.Code with the operation and node context that
// produced it.
type Error struct {
	Op     string        // operation that failed (e.g. "CREATE_NODE", "SET_PROPERTY")
	NodeID int32         // node id, 0 if not applicable
	Key    string        // property key, "" if not applicable
	Code   errcode.Code  // dense error code
	Inner  error         // wrapped error, if any
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.NodeID != 0 {
		parts = append(parts, fmt.Sprintf("node=%d", e.NodeID))
	}
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key=%s", e.Key))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("elementary: %s", e.Code)
	}
	return fmt.Sprintf("elementary: %s (%s)", e.Code, parts[0])
}

func (e *Error) Unwrap() error { return e.Inner }

// Is provides errors.Is support keyed on the underlying error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	if code, ok := target.(errcode.Code); ok {
		return e.Code == code
	}
	return false
}

func newError(op string, nodeID int32, key string, code errcode.Code) *Error {
	if code == errcode.Ok {
		return nil
	}
	return &Error{Op: op, NodeID: nodeID, Key: key, Code: code}
}

// CodeOf extracts the errcode.Code from err if it is (or wraps) an
// *Error, returning errcode.Ok for nil or unrelated errors.
func CodeOf(err error) errcode.Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return errcode.Ok
}
