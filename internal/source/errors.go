package source

import "fmt"

// maxErrorBody caps how much of a provider response body is carried inside
// an error.
const maxErrorBody = 256

// HTTPError reports a non-success transport response from a provider.
type HTTPError struct {
	Source string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Source, e.Status, e.Body)
}

// RateLimitError reports provider throttling, whether signaled by transport
// status or by an error code embedded in an otherwise-success payload. It is
// kept distinct from HTTPError so the orchestrator can log throttling apart
// from genuine failure.
type RateLimitError struct {
	Source  string
	Code    string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (code %s): %s", e.Source, e.Code, e.Message)
}

// truncateBody trims a response body for inclusion in an error message.
func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
