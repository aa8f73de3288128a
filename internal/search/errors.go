package search

import "fmt"

// AuthOrRateLimitError marks a 401/403/429 response from the search API.
// These abort the whole search immediately: retrying an invalid token is
// pointless and hammering a rate-limited endpoint makes things worse.
type AuthOrRateLimitError struct {
	StatusCode int
	Err        error
}

func (e *AuthOrRateLimitError) Error() string {
	return fmt.Sprintf("search aborted: authentication or rate-limit failure (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *AuthOrRateLimitError) Unwrap() error { return e.Err }

// TransientError marks any other search failure (5xx, transport errors).
// The client retries these a bounded number of times before giving up.
type TransientError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search failed after %d attempts (HTTP %d): %v", e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
