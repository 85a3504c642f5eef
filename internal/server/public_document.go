package server

import (
	"net/http"
	"strings"

	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const publicUnavailableHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Document unavailable</title></head>` +
	`<body><p>This document is not available. Please contact the sender.</p></body></html>`

// GetPublicDocument serves the client-facing HTML view of a sent document.
func (s *Server) GetPublicDocument(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	html, err := s.documentSvc.RenderPublicHTML(c.Request.Context(), token)
	if err != nil {
		s.respondPublicError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// AcceptPublicEstimate handles the accept form on the public estimate page
// and sends the client back to the refreshed view.
func (s *Server) AcceptPublicEstimate(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	view, err := s.documentSvc.AcceptEstimate(c.Request.Context(), token)
	if err != nil {
		s.respondPublicError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("estimate.accepted",
		zap.String("document_id", view.Document.ID.String()),
		zap.String("org_id", view.Document.OrgID.String()),
	)
	c.Redirect(http.StatusSeeOther, documentdomain.PublicPath(token))
}

// respondPublicError renders an HTML page for unknown tokens and leaves other
// failures to the JSON error middleware.
func (s *Server) respondPublicError(c *gin.Context, err error) {
	if !isNotFoundError(err) {
		AbortWithError(c, err)
		return
	}
	_ = c.Error(err)
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(publicUnavailableHTML))
	c.Abort()
}
