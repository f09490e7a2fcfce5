package vector

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a store failure for retry purposes.
type Kind int

const (
	// KindUnknown is a failure that could not be classified.
	KindUnknown Kind = iota
	// KindTransient is a network-level failure worth retrying aggressively.
	KindTransient
	// KindPersistent is a non-network failure unlikely to heal on its own.
	KindPersistent
)

// StoreError wraps a store failure with its classification.
type StoreError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return "vector store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a transient store failure.
func Transient(op string, err error) *StoreError {
	return &StoreError{Kind: KindTransient, Op: op, Err: err}
}

// Persistent wraps err as a persistent store failure.
func Persistent(op string, err error) *StoreError {
	return &StoreError{Kind: KindPersistent, Op: op, Err: err}
}

// transientMarkers covers opaque third-party errors that only expose their
// nature through message text. Kept as a last resort; structured checks run
// first.
var transientMarkers = []string{
	"connection reset",
	"i/o error",
	"goaway",
	"broken pipe",
	"unexpected eof",
}

// IsTransient reports whether err is a transient network failure.
// Classification order: an explicit StoreError kind, then structured
// network error types, then message substring markers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *StoreError
	if errors.As(err, &se) && se.Kind != KindUnknown {
		return se.Kind == KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Classify wraps err with a Kind derived from IsTransient. Errors that
// already carry a StoreError classification pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	if IsTransient(err) {
		return Transient(op, err)
	}
	return Persistent(op, err)
}
