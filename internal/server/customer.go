package server

import (
	"net/http"
	"strings"

	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listCustomersQuery struct {
	pagination.Pagination
	Name        string `form:"name"`
	Email       string `form:"email"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
}

// request turns the raw query into a service request. Date-only bounds
// cover the whole day in UTC.
func (q listCustomersQuery) request() (customerdomain.ListCustomerRequest, error) {
	from, err := parseOptionalTime(q.CreatedFrom, false)
	if err != nil {
		return customerdomain.ListCustomerRequest{}, newValidationError("created_from", "invalid_created_from", "invalid created_from")
	}
	to, err := parseOptionalTime(q.CreatedTo, true)
	if err != nil {
		return customerdomain.ListCustomerRequest{}, newValidationError("created_to", "invalid_created_to", "invalid created_to")
	}
	return customerdomain.ListCustomerRequest{
		PageToken:   q.PageToken,
		PageSize:    int32(q.PageSize),
		Name:        strings.TrimSpace(q.Name),
		Email:       strings.TrimSpace(q.Email),
		CreatedFrom: from,
		CreatedTo:   to,
	}, nil
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query listCustomersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req, err := query.request()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	customer, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// UpdateCustomer applies a partial update; absent JSON fields keep their
// stored values.
func (s *Server) UpdateCustomer(c *gin.Context) {
	var req customerdomain.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	updated, err := s.customerSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}
