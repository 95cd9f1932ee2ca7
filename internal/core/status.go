package core

// StatusKind discriminates StatusPayload variants.
type StatusKind string

const (
	StatusSuccess    StatusKind = "success"
	StatusNeedsRetry StatusKind = "needs_retry"
	StatusError      StatusKind = "error"
)

// StatusPayload is the closed result type returned by every stage entry.
// NeedsRetry always carries a non-empty Refinement usable as input to a
// rerun of the SQL stage.
type StatusPayload struct {
	Kind       StatusKind `json:"status"`
	Message    string     `json:"message"`
	Refinement string     `json:"refinement,omitempty"`
}

// Success builds a success status.
func Success(message string) StatusPayload {
	return StatusPayload{Kind: StatusSuccess, Message: message}
}

// NeedsRetry builds a retry-request status. An empty refinement is
// replaced with the message so the contract always holds.
func NeedsRetry(message, refinement string) StatusPayload {
	if refinement == "" {
		refinement = message
	}
	return StatusPayload{Kind: StatusNeedsRetry, Message: message, Refinement: refinement}
}

// ErrorStatus builds an error status.
func ErrorStatus(message string) StatusPayload {
	return StatusPayload{Kind: StatusError, Message: message}
}

// IsSuccess reports whether the payload is the Success variant.
func (p StatusPayload) IsSuccess() bool { return p.Kind == StatusSuccess }

// IsNeedsRetry reports whether the payload is the NeedsRetry variant.
func (p StatusPayload) IsNeedsRetry() bool { return p.Kind == StatusNeedsRetry }

// IsError reports whether the payload is the Error variant.
func (p StatusPayload) IsError() bool { return p.Kind == StatusError }
