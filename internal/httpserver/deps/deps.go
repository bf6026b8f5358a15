package deps

import (
	"time"

	"github.com/naeap/journal/internal/auth"
	"github.com/naeap/journal/internal/console"
	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/metrics"
	"github.com/naeap/journal/internal/uploads"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts []string // Host headers allowed to reach the console
	AllowedCIDRS []string // IPs allowed to reach readyz/metrics
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Content  *content.Service
	Consoles *console.Registry
	Auth     *auth.Authenticator
	Uploader uploads.Uploader
	Metrics  *metrics.Metrics
	Views    *views.Views

	ArchivePageSize int
	MaxUploadBytes  int64
	SecureCookies   bool

	FormBurst         int
	FormRefillPerMin  int
	FormLimiterMaxIPs int
}
