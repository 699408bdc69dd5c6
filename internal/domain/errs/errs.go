// Package errs defines the error taxonomy for the sync pipeline.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by the job manager and catalog fetcher.
var (
	// ErrJobConflict is returned when a sync job is already running.
	ErrJobConflict = errors.New("a sync job is already in progress")

	// ErrInvalidConfig is returned when a channel has no usable API
	// credentials for catalog access.
	ErrInvalidConfig = errors.New("channel has no usable API credentials")

	// ErrQuotaExceeded aborts the current job's catalog enumeration
	// while leaving already-enqueued downloads to drain.
	ErrQuotaExceeded = errors.New("catalog API quota exceeded")

	// ErrQueueEmpty is returned by an atomic dequeue when no item is
	// ready to claim.
	ErrQueueEmpty = errors.New("no queued item ready")
)

// DownloadKind classifies a download failure.
type DownloadKind int

const (
	// KindTransient covers network and timeout failures, retried with
	// backoff up to the item's retry ceiling.
	KindTransient DownloadKind = iota

	// KindPermanent covers source-reported removal/private/blocked
	// conditions. Never retried; any existing local copy is preserved.
	KindPermanent

	// KindStorage covers local disk and permission failures. Fatal to
	// the current item only.
	KindStorage
)

// String returns the error-log classification string for the kind.
func (k DownloadKind) String() string {
	switch k {
	case KindPermanent:
		return "permanent"
	case KindStorage:
		return "storage"
	default:
		return "transient"
	}
}

// DownloadError wraps a downloader failure with its classification.
type DownloadError struct {
	Kind DownloadKind
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s download error: %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// NewDownloadError wraps err with an explicit classification.
func NewDownloadError(kind DownloadKind, err error) *DownloadError {
	return &DownloadError{Kind: kind, Err: err}
}

// permanentMarkers are substrings the external tool emits when the
// source itself refuses the download.
var permanentMarkers = []string{
	"video unavailable",
	"private video",
	"this video has been removed",
	"account associated with this video has been terminated",
	"video is not available",
	"blocked in your country",
	"members-only",
	"sign in to confirm your age",
}

// storageMarkers are substrings indicating local disk trouble.
var storageMarkers = []string{
	"no space left on device",
	"permission denied",
	"read-only file system",
	"disk quota exceeded",
	"file name too long",
}

// ClassifyDownload sorts a raw downloader failure into the taxonomy
// using the tool's combined output. Anything unrecognized is treated
// as transient so it gets the retry path.
func ClassifyDownload(err error, output string) *DownloadError {
	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}

	haystack := strings.ToLower(output + " " + err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(haystack, m) {
			return &DownloadError{Kind: KindPermanent, Err: err}
		}
	}
	for _, m := range storageMarkers {
		if strings.Contains(haystack, m) {
			return &DownloadError{Kind: KindStorage, Err: err}
		}
	}
	return &DownloadError{Kind: KindTransient, Err: err}
}
