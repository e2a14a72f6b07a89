package anubis

import (
	"errors"
	"net/http"
	"strings"
)

// buildURL joins base and path. An absolute path wins over the base.
func buildURL(baseURL, path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// Only transient failures count against the breaker; a 4xx is the caller's
// problem and must not trip it.
func isCircuitFailure(err error) bool {
	return errors.Is(err, errAnubisTransient)
}

func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	default:
		return status >= http.StatusInternalServerError
	}
}
