package server

import (
	"context"
	"net/http"
	"strings"

	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateDocument(c *gin.Context) {
	var req documentdomain.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_id", resp.ID)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDocuments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Kind       string `form:"kind"`
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.List(c.Request.Context(), documentdomain.ListDocumentRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Kind:       strings.TrimSpace(query.Kind),
		Status:     strings.TrimSpace(query.Status),
		CustomerID: strings.TrimSpace(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	id := documentIDParam(c)
	resp, err := s.documentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDocument(c *gin.Context) {
	var req documentdomain.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = documentIDParam(c)

	resp, err := s.documentSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendDocument(c *gin.Context) {
	s.documentAction(c, s.documentSvc.Send)
}

func (s *Server) MarkDocumentPaid(c *gin.Context) {
	s.documentAction(c, s.documentSvc.MarkPaid)
}

func (s *Server) VoidDocument(c *gin.Context) {
	s.documentAction(c, s.documentSvc.Void)
}

// ConvertDocument turns an accepted estimate into a new draft invoice.
func (s *Server) ConvertDocument(c *gin.Context) {
	resp, err := s.documentSvc.Convert(c.Request.Context(), documentIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// PreviewDocumentTotals runs the calculator on unsaved content.
func (s *Server) PreviewDocumentTotals(c *gin.Context) {
	var req documentdomain.PreviewTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.PreviewTotals(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadDocumentPDF(c *gin.Context) {
	resp, err := s.documentSvc.RenderPDF(c.Request.Context(), documentIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", resp.Content, map[string]string{
		"Content-Disposition": `attachment; filename="` + resp.Filename + `"`,
	})
}

func (s *Server) documentAction(c *gin.Context, action func(ctx context.Context, id string) (documentdomain.DocumentResponse, error)) {
	resp, err := action(c.Request.Context(), documentIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func documentIDParam(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("document_id", id)
	return id
}
