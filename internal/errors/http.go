package errors

import "net/http"

// HTTPStatus maps domain codes to HTTP status codes for client responses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOutOfRange:
		return http.StatusBadRequest
	case CodeEdgeTaken:
		return http.StatusConflict
	case CodeWarmingUp:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeGameOver:
		return http.StatusGone
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
