// Package fetcher talks to the gazette's public API: the daily summary
// endpoint that lists published documents, and the PDF downloads themselves.
package fetcher

import (
	"context"
	"io"
	"time"

	"github.com/registralia/borme-cli/internal/model"
)

// Fetcher defines the interface for talking to the gazette host.
type Fetcher interface {
	// Summary returns the section-A document references published on the
	// given day. A day with no gazette issue (weekends, holidays) returns
	// an empty slice and no error.
	Summary(ctx context.Context, day time.Time) ([]model.DocumentRef, error)

	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
