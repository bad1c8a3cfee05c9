package reconcile

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"careline/internal/voice"
	"careline/pkg/logger"
)

// maxWebhookBody bounds the provider payload read into memory.
const maxWebhookBody = 1 << 20

// Handler serves the provider's webhook endpoint.
//
// Auth is a static shared-secret bearer compare, constant-time. Payloads this
// service cannot use (other event types, missing call id) are acknowledged
// with 200 so the provider never retries them; only auth and parse failures
// are non-200.
func Handler(secret string, svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorized(c.Request, secret) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
			return
		}

		report, err := voice.ParseReport(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed payload"})
			return
		}

		if report.Type != voice.ReportTypeEndOfCall {
			c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored"})
			return
		}

		out, err := svc.ProcessReport(c.Request.Context(), report)
		if err != nil {
			// The call log could not be written; the provider should retry.
			logger.FromGin(c).Error("report reconciliation failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "reconciliation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"call_id":  out.ProviderCallID,
			"status":   string(out.Status),
			"duration": out.Duration,
		})
	}
}

// authorized compares the presented bearer secret in constant time. The
// secret may arrive as a bare Authorization value or Bearer-prefixed; both
// forms occur across provider configurations.
func authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	presented := r.Header.Get("Authorization")
	presented = strings.TrimPrefix(presented, "Bearer ")
	if presented == "" {
		presented = r.Header.Get("X-Webhook-Secret")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}
