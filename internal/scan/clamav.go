package scan

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docuvault/document-service/internal/services"
	clamd "github.com/dutchcoders/go-clamd"
	"github.com/sirupsen/logrus"
)

// clamAVRetries bounds retries of transient daemon I/O failures before the
// scan is reported failed.
const clamAVRetries = 3

// ClamAVScanner streams content to a clamd daemon.
type ClamAVScanner struct {
	clam *clamd.Clamd
	log  *logrus.Entry
}

func NewClamAVScanner(address string, log *logrus.Logger) *ClamAVScanner {
	return &ClamAVScanner{
		clam: clamd.NewClamd(address),
		log:  log.WithField("component", "clamav"),
	}
}

// Ping verifies the daemon is reachable, for health checks.
func (s *ClamAVScanner) Ping() error {
	return s.clam.Ping()
}

func (s *ClamAVScanner) Scan(ctx context.Context, r io.Reader) (Outcome, error) {
	var lastErr error
	for attempt := 1; attempt <= clamAVRetries; attempt++ {
		outcome, err := s.scanOnce(r)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		s.log.Warnf("scan attempt %d/%d failed: %v", attempt, clamAVRetries, err)

		// The stream was consumed by the failed attempt; only seekable
		// content can be retried.
		seeker, ok := r.(io.Seeker)
		if !ok {
			break
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			break
		}

		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return Outcome{
		Verdict: services.VerdictFailed,
		Detail:  fmt.Sprintf("antivirus scan failed: %v", lastErr),
	}, nil
}

func (s *ClamAVScanner) scanOnce(r io.Reader) (Outcome, error) {
	abort := make(chan bool)
	defer close(abort)

	responses, err := s.clam.ScanStream(r, abort)
	if err != nil {
		return Outcome{}, err
	}

	for res := range responses {
		if res.Status == clamd.RES_FOUND {
			return Outcome{Verdict: services.VerdictInfected, Detail: res.Description}, nil
		}
		if res.Status == clamd.RES_ERROR || res.Status == clamd.RES_PARSE_ERROR {
			return Outcome{}, fmt.Errorf("clamd error: %s", res.Raw)
		}
	}
	return Outcome{Verdict: services.VerdictClean, Detail: "OK"}, nil
}
