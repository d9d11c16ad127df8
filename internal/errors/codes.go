// Package errors provides structured error handling shared by the admission
// coordinator, the transport layer, and clients.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Submission errors
	CodeOutOfRange    Code = "OUT_OF_RANGE"
	CodeEdgeTaken     Code = "EDGE_TAKEN"
	CodeWarmingUp     Code = "WARMING_UP"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeAppendFailure Code = "APPEND_FAILURE"
	CodeGameOver      Code = "GAME_OVER"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Retryable reports whether a submission rejected with this code may succeed
// if retried later without changing the request.
func (c Code) Retryable() bool {
	switch c {
	case CodeWarmingUp, CodeRateLimited:
		return true
	default:
		return false
	}
}

// Refundable reports whether a client quota token spent on a submission
// rejected with this code should be returned. Rate-limit rejections are never
// refunded so the backpressure signal survives.
func (c Code) Refundable() bool {
	switch c {
	case CodeEdgeTaken, CodeWarmingUp:
		return true
	default:
		return false
	}
}
