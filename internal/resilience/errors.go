package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// transient is implemented by error types that classify their own
// retryability, such as engine API errors carrying an HTTP status.
type transient interface {
	Transient() bool
}

// IsTransient reports whether the error is worth retrying. Self-classifying
// errors anywhere in the chain get the final word; otherwise common network
// failure modes are recognized.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var t transient
	if errors.As(err, &t) {
		return t.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped transport errors from HTTP clients lose their type; fall back
	// to the message.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// IsTransientStatus reports whether an HTTP status from a remote service is
// worth retrying.
func IsTransientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		(code >= 500 && code < 600)
}
