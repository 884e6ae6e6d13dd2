package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/service"
)

// Kinds outside the model error taxonomy.
const (
	kindHistoryDisabled = "history_disabled"
	kindNotFound        = "not_found"
	kindTimeout         = "timeout"
	kindCanceled        = "canceled"
	kindInternal        = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	ModelID   string   `json:"model_id,omitempty"`
	Step      int      `json:"step,omitempty"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	// Run is the partial pipeline run of an aborted run.
	Run *model.PipelineRun `json:"run,omitempty"`
}

// statusOf maps an error to its HTTP status and wire kind.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, model.KindName(err)
	case errors.Is(err, model.ErrModelNotFound):
		return http.StatusNotFound, model.KindName(err)
	case errors.Is(err, model.ErrLoad):
		return http.StatusServiceUnavailable, model.KindName(err)
	case errors.Is(err, model.ErrEmptyEnsemble), errors.Is(err, model.ErrInference):
		return http.StatusBadGateway, model.KindName(err)
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotFound, kindHistoryDisabled
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, kindTimeout
	case errors.Is(err, context.Canceled):
		return 499, kindCanceled
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// respondError aborts the request with the body for err.
func respondError(c *gin.Context, err error) {
	respondErrorWith(c, err, nil)
}

// respondErrorWith is respondError with the partial run of a pipeline.
func respondErrorWith(c *gin.Context, err error, run *model.PipelineRun) {
	status, kind := statusOf(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Kind:      kind,
		RequestID: RequestID(c),
		Run:       run,
	}
	var merr *model.Error
	if errors.As(err, &merr) {
		resp.ModelID = merr.ModelID
		resp.Step = merr.Step
	}
	if status == http.StatusInternalServerError {
		resp.Error = http.StatusText(status)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// respondInvalid aborts the request with a 400 and optional field details.
func respondInvalid(c *gin.Context, msg string, details []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:     msg,
		Kind:      model.KindName(model.ErrInvalidInput),
		Details:   details,
		RequestID: RequestID(c),
	})
}
