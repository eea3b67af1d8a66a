package scan_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/docuvault/document-service/internal/models"
	"github.com/docuvault/document-service/internal/scan"
	"github.com/docuvault/document-service/internal/services"
	"github.com/docuvault/document-service/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopQueue struct{}

func (nopQueue) EnqueueScan(context.Context, int64) error { return nil }

type stubScanner struct {
	outcome scan.Outcome
	err     error
}

func (s stubScanner) Scan(_ context.Context, r io.Reader) (scan.Outcome, error) {
	_, _ = io.Copy(io.Discard, r)
	return s.outcome, s.err
}

type workerFixture struct {
	docs    *services.DocumentService
	content *services.MemoryContentStore
	store   *storage.Memory
	actor   services.Actor
	log     *logrus.Logger
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := storage.NewMemory()
	content := services.NewMemoryContentStore()
	auditor := services.NewAuditor(store, log)
	docs := services.NewDocumentService(store, content, nopQueue{}, auditor, log)

	return &workerFixture{
		docs:    docs,
		content: content,
		store:   store,
		actor:   services.User("user-1", "user-1@example.com", "127.0.0.1", "go-test"),
		log:     log,
	}
}

func (f *workerFixture) upload(t *testing.T, content string) models.Document {
	t.Helper()
	doc, err := f.docs.Create(context.Background(), f.actor, services.CreateDocumentInput{
		Title:            "Statement",
		DocumentType:     "bank_statement",
		OriginalFilename: "statement.pdf",
		MimeType:         "application/pdf",
		Content:          []byte(content),
	})
	require.NoError(t, err)
	return doc
}

func (f *workerFixture) status(t *testing.T, id int64) models.Document {
	t.Helper()
	doc, err := f.docs.Get(context.Background(), f.actor, id)
	require.NoError(t, err)
	return doc
}

func TestProcessCleanVerdict(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "harmless")

	w := scan.NewWorker(f.docs, f.content, scan.SimulatedScanner{}, f.log)
	require.NoError(t, w.Process(context.Background(), doc.ID))

	got := f.status(t, doc.ID)
	assert.Equal(t, models.StatusClean, got.Status)
	require.NotNil(t, got.ScanResult)
	assert.Equal(t, "OK (simulated)", *got.ScanResult)
	assert.NotNil(t, got.ScannedAt)
}

func TestProcessInfectedVerdict(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "malicious")

	w := scan.NewWorker(f.docs, f.content, stubScanner{
		outcome: scan.Outcome{Verdict: services.VerdictInfected, Detail: "Eicar-Test-Signature"},
	}, f.log)
	require.NoError(t, w.Process(context.Background(), doc.ID))

	got := f.status(t, doc.ID)
	assert.Equal(t, models.StatusInfected, got.Status)
	require.NotNil(t, got.ScanResult)
	assert.Equal(t, "Eicar-Test-Signature", *got.ScanResult)

	var flagged bool
	for _, e := range f.store.AuditEvents() {
		if e.Action == models.ActionVirusDetected {
			flagged = true
		}
	}
	assert.True(t, flagged, "infections leave an audit event")
}

func TestProcessScannerErrorMarksFailed(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "data")

	w := scan.NewWorker(f.docs, f.content, stubScanner{err: errors.New("daemon unreachable")}, f.log)
	require.NoError(t, w.Process(context.Background(), doc.ID))

	got := f.status(t, doc.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ScanResult)
	assert.Contains(t, *got.ScanResult, "daemon unreachable")
}

func TestProcessMissingContentMarksFailed(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "data")
	require.NoError(t, f.content.Delete(context.Background(), doc.StorageKey))

	w := scan.NewWorker(f.docs, f.content, scan.SimulatedScanner{}, f.log)
	require.NoError(t, w.Process(context.Background(), doc.ID))

	got := f.status(t, doc.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestProcessSkipsDeletedDocument(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "data")
	require.NoError(t, f.docs.Delete(context.Background(), f.actor, doc.ID))

	w := scan.NewWorker(f.docs, f.content, scan.SimulatedScanner{}, f.log)
	assert.NoError(t, w.Process(context.Background(), doc.ID), "unclaimable documents are a no-op")
}

func TestProcessDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newWorkerFixture(t)
	doc := f.upload(t, "data")

	w := scan.NewWorker(f.docs, f.content, scan.SimulatedScanner{}, f.log)
	require.NoError(t, w.Process(context.Background(), doc.ID))
	require.NoError(t, w.Process(context.Background(), doc.ID))

	got := f.status(t, doc.ID)
	assert.Equal(t, models.StatusClean, got.Status)

	var completions int
	for _, e := range f.store.AuditEvents() {
		if e.Action == models.ActionScanCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions, "redelivery must not double-report")
}
