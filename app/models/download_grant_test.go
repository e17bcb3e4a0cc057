package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDownloadGrantCanDownload(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)

	g := &DownloadGrant{IsActive: true, ExpiresAt: &future, MaxDownloads: 5, DownloadCount: 0}
	assert.True(t, g.CanDownload(now))

	inactive := &DownloadGrant{IsActive: false, ExpiresAt: &future, MaxDownloads: 5}
	assert.False(t, inactive.CanDownload(now))

	expired := &DownloadGrant{IsActive: true, ExpiresAt: &past, MaxDownloads: 5}
	assert.False(t, expired.CanDownload(now))

	exhausted := &DownloadGrant{IsActive: true, ExpiresAt: &future, MaxDownloads: 3, DownloadCount: 3}
	assert.False(t, exhausted.CanDownload(now))

	unlimited := &DownloadGrant{IsActive: true, MaxDownloads: 0, DownloadCount: 999}
	assert.True(t, unlimited.CanDownload(now))
}
