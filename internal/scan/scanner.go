// Package scan runs the asynchronous antivirus pipeline: claim the document,
// scan its content, report the terminal verdict.
package scan

import (
	"context"
	"io"

	"github.com/docuvault/document-service/internal/services"
)

// Outcome is a scanner's terminal answer for one blob.
type Outcome struct {
	Verdict services.ScanVerdict
	Detail  string
}

// Scanner inspects content and produces a verdict. Implementations must
// always return a terminal outcome; transient failures are their own
// responsibility to retry before giving up with VerdictFailed.
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) (Outcome, error)
}

// SimulatedScanner marks everything clean. It stands in for a real engine in
// development and tests.
type SimulatedScanner struct{}

func (SimulatedScanner) Scan(_ context.Context, r io.Reader) (Outcome, error) {
	// Drain so the behavior matches a real scanner reading the stream.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return Outcome{Verdict: services.VerdictFailed, Detail: err.Error()}, nil
	}
	return Outcome{Verdict: services.VerdictClean, Detail: "OK (simulated)"}, nil
}
