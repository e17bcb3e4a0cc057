package constants

// Static route constants
const (
	HealthRoute       = "/healthz"
	WebhookRoute      = "/webhooks/clerk"
	DownloadRoute     = "/downloads/:token"
	DownloadFileRoute = "/downloads/file/:token"
)
