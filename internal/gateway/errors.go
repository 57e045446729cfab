package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Error classes returned (wrapped) by HandleError.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrNotFound       = errors.New("not found")
	ErrConnection     = errors.New("connection error")
)

// HandleError converts SDK errors to classified, user-friendly errors.
// The original error stays reachable through errors.As/Is.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	if class := classifyStatus(err); class != nil {
		return fmt.Errorf("%w: %w", class, err)
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "unauthorized", "invalid api key", "forbidden") {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if containsAny(errStr, "rate limit", "quota", "too many requests") {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	if containsAny(errStr, "connection", "eof", "timeout", "dial", "refused", "no such host") {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return err
}

func classifyStatus(err error) error {
	var status int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return nil
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
