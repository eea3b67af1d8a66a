package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionsAndChecks(t *testing.T) {
	assert.False(t, StatusPendingScan.IsTerminal())
	assert.False(t, StatusScanning.IsTerminal())
	assert.True(t, StatusClean.IsTerminal())
	assert.True(t, StatusInfected.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())

	assert.True(t, StatusClean.IsDownloadable())
	assert.True(t, StatusClean.IsShareable())
	for _, s := range []DocumentStatus{StatusPendingScan, StatusScanning, StatusInfected, StatusFailed} {
		assert.False(t, s.IsDownloadable(), "status %s must not be downloadable", s)
		assert.False(t, s.IsShareable(), "status %s must not be shareable", s)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus("pending_scan"))
	assert.True(t, ValidStatus("clean"))
	assert.False(t, ValidStatus("quarantined"))
	assert.False(t, ValidStatus(""))
}

func TestValidDocumentType(t *testing.T) {
	assert.True(t, ValidDocumentType("passport"))
	assert.True(t, ValidDocumentType("other"))
	assert.False(t, ValidDocumentType("selfie"))
}

func TestFormattedSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{10, "10.00 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		d := Document{FileSize: tt.size}
		assert.Equal(t, tt.want, d.FormattedSize())
	}
}

func TestShareUsableAt(t *testing.T) {
	now := time.Now()
	base := DocumentShare{
		IsActive:      true,
		ExpiresAt:     now.Add(time.Hour),
		MaxDownloads:  2,
		DownloadCount: 0,
	}

	assert.True(t, base.UsableAt(now))

	inactive := base
	inactive.IsActive = false
	assert.False(t, inactive.UsableAt(now))

	expired := base
	expired.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, expired.UsableAt(now))

	exhausted := base
	exhausted.DownloadCount = 2
	assert.False(t, exhausted.UsableAt(now))

	unlimited := base
	unlimited.MaxDownloads = 0
	unlimited.DownloadCount = 9000
	assert.True(t, unlimited.UsableAt(now))
}
