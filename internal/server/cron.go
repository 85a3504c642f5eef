package server

import (
	"net/http"

	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunReminders runs the reminder sweep. `?date=YYYY-MM-DD` overrides today
// for backfills and testing. Only a top-level failure answers non-2xx; per
// invoice failures are inside the report.
func (s *Server) RunReminders(c *gin.Context) {
	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	}
	today := calendar.DateOf(s.clock.Now(), s.cfg.Location())
	if date != nil {
		today = *date
	}

	report, err := s.reminders.Run(c.Request.Context(), today)
	if err != nil {
		s.log.Warn("cron.reminders.failed", zap.String("today", today.String()), zap.Error(err))
		status, payload := mapError(err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{
			"ok":    false,
			"today": today.String(),
			"error": payload,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
