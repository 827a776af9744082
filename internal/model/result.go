package model

// OpResult is the structured acknowledgement returned by write
// operations. Failures in this layer are reported as values, not
// raised as errors.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// ID carries the identifier of a created record, when applicable.
	ID string `json:"id,omitempty"`
}

// OK returns a successful result carrying the given record identifier.
func OK(id string) OpResult {
	return OpResult{Success: true, ID: id}
}

// Fail returns a failed result with a descriptive message.
func Fail(message string) OpResult {
	return OpResult{Success: false, Message: message}
}
