package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
)

func asError[T any](err error, target *T) bool { return errors.As(err, target) }

// APIErrorMessage returns the human readable message of a provider error:
// the API's error.message when the response carried one, else err.Error().
func APIErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := openAIErrorMessage(err); ok && msg != "" {
		return msg
	}
	var aerr *anthropic.Error
	if asError(err, &aerr) {
		s := aerr.Error()
		if i := strings.IndexByte(s, '{'); i >= 0 {
			if m := gjson.Get(s[i:], "error.message"); m.Exists() && m.String() != "" {
				return m.String()
			}
		}
		return s
	}
	return err.Error()
}

// StatusCode returns the HTTP status of a provider error, or 0.
func StatusCode(err error) int {
	if code, ok := openAIStatus(err); ok {
		return code
	}
	var aerr *anthropic.Error
	if asError(err, &aerr) {
		return aerr.StatusCode
	}
	return 0
}

// Retryable reports whether err is worth another attempt: rate limiting,
// server errors and transport failures. Cancellation never is.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrImagesUnsupported) || errors.Is(err, ErrNoChoices) {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
