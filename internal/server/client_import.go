package server

import (
	"net/http"

	clientimportdomain "github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	"github.com/gin-gonic/gin"
)

const maxImportUploadBytes = 10 << 20

// PreviewClientImport classifies an uploaded .csv or .xlsx file without
// writing anything.
func (s *Server) PreviewClientImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "file_required", "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, clientimportdomain.ErrMalformedFile)
		return
	}
	defer file.Close()

	resp, err := s.importSvc.Preview(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmClientImport(c *gin.Context) {
	var req clientimportdomain.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.importSvc.Confirm(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
