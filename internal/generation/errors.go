package generation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGenerationBackend = errors.New("generation backend failed")
	ErrMalformedResponse = errors.New("malformed generation response")
	ErrEmptyProject      = errors.New("generated project has no files")
	ErrNoBackend         = errors.New("no generation backend configured")
)

// BackendError is a transport-level failure of one provider. It always
// matches ErrGenerationBackend.
type BackendError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() []error {
	return []error{ErrGenerationBackend, e.Err}
}

// Hint returns a remediation message for the most common causes.
func (e *BackendError) Hint() string {
	msg := strings.ToLower(e.Err.Error())
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403 ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "api_key_invalid") || strings.Contains(msg, "unauthorized"):
		return fmt.Sprintf("The %s API key appears to be invalid. Check the configured key and restart the server.", e.Provider)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "billing"):
		return fmt.Sprintf("The %s account has hit its usage limit. Check the plan or switch to another key.", e.Provider)
	case e.StatusCode == 429 || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return "The provider is rate limiting requests. Wait a moment and try again."
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "The provider did not answer in time. Try again or raise generation.timeout."
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "network"):
		return "The provider could not be reached. Check the network connection and base URL."
	default:
		return ""
	}
}

// HintFor extracts a remediation hint from any error chain.
func HintFor(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Hint()
	}
	return ""
}
