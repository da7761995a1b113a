package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
)

func (s *Server) GetProfile(c *gin.Context) {
	profile, err := s.issuerSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req issuerdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.issuerSvc.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}
