package fetcher

import (
	"errors"
	"fmt"
)

// Failure kinds. A *FetchError carries exactly one of these as its Kind, so
// callers test with errors.Is.
var (
	// ErrNotAuthenticated means the session no longer grants access. It is
	// terminal for a run: the session has to be refreshed out of band.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound means the article does not exist.
	ErrNotFound = errors.New("article not found")
	// ErrExtractionFailed means the page loaded but no usable article could
	// be extracted from it. Only the one article is skipped.
	ErrExtractionFailed = errors.New("extraction failed")
)

// FetchError is the typed failure returned by the fetcher.
type FetchError struct {
	Kind error
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func fail(kind error, url string, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: fmt.Errorf(format, args...)}
}
