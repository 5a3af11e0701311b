package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/convohub/convohub-api/pkg/errors"
)

// Envelope is the uniform response wrapper for every API endpoint.
type Envelope struct {
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// ErrorBody is the serialised form of a domain error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pagination describes a paginated collection result.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes page counts from a total row count.
func NewPagination(page, perPage int, total int64) *Pagination {
	if perPage <= 0 {
		perPage = 1
	}
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return &Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// JSON writes a success envelope with the given status, payload and meta.
func JSON(c *gin.Context, status int, data interface{}, meta interface{}) {
	c.JSON(status, Envelope{Data: data, Meta: meta})
}

// Paginated writes a 200 response carrying a collection and its pagination.
func Paginated(c *gin.Context, data interface{}, p *Pagination) {
	c.JSON(http.StatusOK, Envelope{Data: data, Pagination: p})
}

// NoContent writes an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error normalises err into the envelope's error shape and writes it with
// the status the domain error carries.
func Error(c *gin.Context, err error) {
	e := apperrors.FromError(err)
	c.JSON(e.Status, Envelope{Error: &ErrorBody{Code: e.Code, Message: e.Message}})
}
