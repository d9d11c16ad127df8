package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetCode(t *testing.T) {
	err := New(CodeEdgeTaken, "edge %d is taken", 42)
	if got := GetCode(err); got != CodeEdgeTaken {
		t.Fatalf("GetCode() = %s, want %s", got, CodeEdgeTaken)
	}
	wrapped := fmt.Errorf("submit: %w", err)
	if got := GetCode(wrapped); got != CodeEdgeTaken {
		t.Fatalf("GetCode(wrapped) = %s, want %s", got, CodeEdgeTaken)
	}
	if got := GetCode(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("GetCode(plain) = %s, want %s", got, CodeUnknown)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeAppendFailure, cause, "append record")
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	if !IsCode(err, CodeAppendFailure) {
		t.Fatalf("IsCode() = false, want true")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeOutOfRange, http.StatusBadRequest},
		{CodeEdgeTaken, http.StatusConflict},
		{CodeWarmingUp, http.StatusServiceUnavailable},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeGameOver, http.StatusGone},
		{CodeNotFound, http.StatusNotFound},
		{CodeAppendFailure, http.StatusInternalServerError},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestRefundable(t *testing.T) {
	if !CodeEdgeTaken.Refundable() {
		t.Fatalf("CodeEdgeTaken.Refundable() = false, want true")
	}
	if !CodeWarmingUp.Refundable() {
		t.Fatalf("CodeWarmingUp.Refundable() = false, want true")
	}
	if CodeRateLimited.Refundable() {
		t.Fatalf("CodeRateLimited.Refundable() = true, want false")
	}
}
