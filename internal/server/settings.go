package server

import (
	"net/http"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req accountdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
