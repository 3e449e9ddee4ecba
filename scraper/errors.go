package scraper

import (
	"fmt"
	"net/http"
)

// ErrorKind separates fetch failures the retry envelope may retry from
// those it must surface immediately.
type ErrorKind int

const (
	// KindTransient covers network timeouts, 5xx responses, and
	// rate-limit signals.
	KindTransient ErrorKind = iota
	// KindTerminal covers auth failures and malformed queries.
	KindTerminal
)

// FetchError is the error surface of a source adapter.
type FetchError struct {
	Source string
	Status int // HTTP status when applicable, 0 otherwise
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient implements the retry package's marker interface.
func (e *FetchError) Transient() bool { return e.Kind == KindTransient }

// classifyStatus maps an HTTP status onto an error kind. Rate limiting
// (429) and server errors are transient; auth and client errors are not.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindTerminal
	}
}
