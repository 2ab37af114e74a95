package resilience

import (
	"errors"
	"net"
	"net/http"
	"syscall"
)

// TransientError marks a delivery failure worth retrying, such as a webhook
// answering 503. StatusCode is 0 for network-level failures.
type TransientError struct {
	Err        error
	StatusCode int
}

// NewTransientError marks err as retryable.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// retryableErrnos are connection failures a receiver restart typically causes.
var retryableErrnos = []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED}

// IsTransient reports whether retrying err may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a webhook response status is worth
// retrying: timeouts, rate limiting and 5xx gateway errors.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
