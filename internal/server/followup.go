package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	followupdomain "github.com/smallbiznis/chaseless/internal/followup/domain"
)

// RecordFollowUp answers 201 whenever the record is stored. A failed e-mail
// shows up as a warning in the body, not as an error status.
func (s *Server) RecordFollowUp(c *gin.Context) {
	var req followupdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res, err := s.followUpSvc.Record(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": res.FollowUp, "notified": res.Notified}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	c.JSON(http.StatusCreated, body)
}

func (s *Server) ListFollowUps(c *gin.Context) {
	items, err := s.followUpSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListDueReminders(c *gin.Context) {
	items, err := s.followUpSvc.DueReminders(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if items == nil {
		items = []followupdomain.Reminder{}
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
