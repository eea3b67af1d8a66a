package scan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/services"
	"github.com/sirupsen/logrus"
)

// Worker consumes scan tasks. Tasks reference documents by id only: the
// document may have been deleted, or the task may be a duplicate delivery,
// and both must fall through as silent no-ops.
type Worker struct {
	docs    *services.DocumentService
	content services.ContentStore
	scanner Scanner
	log     *logrus.Entry
}

func NewWorker(docs *services.DocumentService, content services.ContentStore, scanner Scanner, log *logrus.Logger) *Worker {
	return &Worker{
		docs:    docs,
		content: content,
		scanner: scanner,
		log:     log.WithField("component", "scan-worker"),
	}
}

// Process runs one scan task end to end: claim, scan, report.
func (w *Worker) Process(ctx context.Context, documentID int64) error {
	doc, claimed, err := w.docs.ClaimForScan(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to claim document %d: %w", documentID, err)
	}
	if !claimed {
		// Deleted before scanned, or a duplicate dispatch. Not an error.
		w.log.Debugf("document %d not claimable, skipping", documentID)
		return nil
	}

	outcome := w.scanContent(ctx, doc.StorageKey)

	if err := w.docs.ReportScanResult(ctx, documentID, outcome.Verdict, outcome.Detail); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Late or duplicate report; the first terminal state stands.
			w.log.Warnf("scan result for document %d discarded: %v", documentID, err)
			return nil
		}
		return err
	}
	return nil
}

func (w *Worker) scanContent(ctx context.Context, key string) Outcome {
	rc, err := w.content.Get(ctx, key)
	if err != nil {
		return Outcome{
			Verdict: services.VerdictFailed,
			Detail:  fmt.Sprintf("content unavailable for scanning: %v", err),
		}
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			w.log.Warnf("failed to close content stream for %s: %v", key, closeErr)
		}
	}()

	return w.scanStream(ctx, rc)
}

func (w *Worker) scanStream(ctx context.Context, r io.Reader) Outcome {
	outcome, err := w.scanner.Scan(ctx, r)
	if err != nil {
		return Outcome{
			Verdict: services.VerdictFailed,
			Detail:  fmt.Sprintf("scanner error: %v", err),
		}
	}
	return outcome
}
