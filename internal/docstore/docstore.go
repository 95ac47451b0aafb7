// Package docstore keeps fetched gazette PDFs on disk and assigns them
// stable content-addressed identifiers. A document's ID is the SHA-256 of
// its bytes, so re-fetching an unchanged PDF always yields the same ID and
// ingestion stays idempotent.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/fetcher"
	"github.com/registralia/borme-cli/internal/model"
)

// Store caches gazette PDFs under a root directory, one subtree per
// publication month: <root>/2025/05/BORME-A-2025-93-28.pdf.
type Store struct {
	root    string
	fetcher fetcher.Fetcher
}

// New creates a document store rooted at dir.
func New(dir string, f fetcher.Fetcher) *Store {
	return &Store{root: dir, fetcher: f}
}

// Path returns where a reference's PDF lives on disk.
func (s *Store) Path(ref model.DocumentRef) string {
	return filepath.Join(s.root, ref.Day.Format("2006"), ref.Day.Format("01"), ref.GazetteID+".pdf")
}

// Acquire returns the document for a reference, downloading the PDF unless a
// cached copy already exists. The returned document carries the content hash
// either way.
func (s *Store) Acquire(ctx context.Context, ref model.DocumentRef) (*model.SourceDocument, error) {
	path := s.Path(ref)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		id, err := hashFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "hash cached document %s", ref.GazetteID)
		}
		zap.L().Debug("document cache hit",
			zap.String("gazette_id", ref.GazetteID),
			zap.String("path", path))
		return s.document(ref, id, path, info.Size(), model.FetchStatusCached), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create document directory")
	}

	// Download to a temp name first so a partial fetch never poses as a
	// cached document.
	tmp := path + ".part"
	size, err := s.fetcher.DownloadToFile(ctx, ref.URL, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrapf(err, "download %s", ref.GazetteID)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrap(err, "finalize document")
	}

	id, err := hashFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "hash document %s", ref.GazetteID)
	}

	zap.L().Info("document fetched",
		zap.String("gazette_id", ref.GazetteID),
		zap.String("province", ref.Province),
		zap.Int64("bytes", size))
	return s.document(ref, id, path, size, model.FetchStatusFetched), nil
}

func (s *Store) document(ref model.DocumentRef, id, path string, size int64, status model.FetchStatus) *model.SourceDocument {
	return &model.SourceDocument{
		ID:          id,
		GazetteID:   ref.GazetteID,
		OriginDate:  ref.Day,
		Province:    ref.Province,
		URL:         ref.URL,
		Path:        path,
		SizeBytes:   size,
		FetchStatus: status,
		FetchedAt:   time.Now().UTC(),
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
