package storage

import (
	"github.com/gofiber/fiber/v2/log"
)

var defaultClient *Client

// Setup initializes the process-wide asset store client. A disabled or
// misconfigured store leaves the client nil; download URLs then fall back to
// the local redirect path.
func Setup() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Errorf("[AssetStore] Invalid configuration: %v", err)
		return
	}
	if !cfg.IsEnabled() {
		log.Info("[AssetStore] Disabled")
		return
	}

	client, err := NewClient(cfg)
	if err != nil {
		log.Errorf("[AssetStore] Setup failed: %v", err)
		return
	}
	defaultClient = client
}

// DefaultClient returns the configured asset store client, or nil when the
// store is disabled.
func DefaultClient() *Client {
	return defaultClient
}
