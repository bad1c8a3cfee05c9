package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"careline/internal/auth"
	"careline/internal/rbac"
	"careline/internal/reconcile"
	"careline/pkg/logger"
)

// HealthChecker reports datastore liveness for /healthz.
type HealthChecker func(ctx context.Context) error

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	Logger        *slog.Logger
	AuthManager   *auth.Manager
	Handlers      *Handlers
	Reconciler    *reconcile.Service
	WebhookSecret string
	Health        HealthChecker
}

// NewRouter builds the full route table.
//
// The webhook route authenticates with the provider shared secret, not JWT;
// everything under /v1 requires a valid access token and an org scope.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(d.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/webhooks/voice", reconcile.Handler(d.WebhookSecret, d.Reconciler))

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.AuthManager))
	v1.Use(rbac.RequireOrg())

	staffUp := v1.Group("")
	staffUp.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RolePastor, rbac.RoleStaff))
	{
		staffUp.GET("/campaigns", d.Handlers.ListCampaigns)
		staffUp.GET("/campaigns/:id", d.Handlers.GetCampaign)
		staffUp.GET("/campaigns/:id/summary", d.Handlers.CampaignSummary)

		staffUp.GET("/escalations", d.Handlers.ListEscalations)
		staffUp.GET("/followups", d.Handlers.ListFollowUps)
		staffUp.POST("/followups", d.Handlers.CreateFollowUp)
		staffUp.POST("/followups/:id/status", d.Handlers.UpdateFollowUpStatus)
		staffUp.POST("/followups/:id/notes", d.Handlers.AppendFollowUpNote)
	}

	// Starting a calling run and closing an escalation are pastor-level acts.
	pastorUp := v1.Group("")
	pastorUp.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RolePastor))
	{
		pastorUp.POST("/campaigns/calls", d.Handlers.StartCampaignCalls)
		pastorUp.POST("/escalations/:id/resolve", d.Handlers.ResolveEscalation)
	}

	return r
}
