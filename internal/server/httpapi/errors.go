package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	UpstreamBody   string `json:"upstreamBody,omitempty"`
	Solution       string `json:"solution,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnconfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrSuspectedFiltering),
		errors.Is(err, common.ErrTransport),
		errors.Is(err, common.ErrMalformedResponse),
		errors.Is(err, common.ErrUploadFailed),
		errors.Is(err, common.ErrDeleteFailed),
		errors.Is(err, common.ErrListFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error()}

	var opErr *common.OperationError
	if errors.As(err, &opErr) {
		resp.UpstreamStatus = opErr.Status
		resp.UpstreamBody = opErr.Body
	}
	if errors.Is(err, common.ErrSuspectedFiltering) {
		resp.Solution = bucket.FilteredRecord().Solution
	}

	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, resp)
}
