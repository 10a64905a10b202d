package httpserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/fingerprint"
	"github.com/iammusic/submissions/internal/model"
	"github.com/iammusic/submissions/internal/service"
)

// maxBodyBytes caps POST bodies; valid submissions are far smaller.
const maxBodyBytes = 64 << 10

// SubmitResponse is returned for accepted and suppressed submissions.
type SubmitResponse struct {
	Message string `json:"message"`
	Saved   bool   `json:"saved"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Pinger reports store reachability for /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubmissionHandler serves the submission endpoint.
type SubmissionHandler struct {
	svc service.SubmissionService
	log *zap.Logger
}

// NewSubmissionHandler constructs a handler over svc.
func NewSubmissionHandler(svc service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: log}
}

// Preflight answers CORS preflight requests with an empty 200.
func (h *SubmissionHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Info answers GET with a usage hint.
func (h *SubmissionHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Use POST to save text"})
}

// Submit runs the ingestion pipeline for a JSON SubmissionInput.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var in model.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "InvalidJSON", Message: "Request body must be a JSON object"})
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), service.SubmitRequest{
		Input:       in,
		Fingerprint: fingerprint.FromRequest(c.Request),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !res.Saved {
		c.JSON(http.StatusOK, SubmitResponse{Message: "Duplicate entry, not saved", Saved: false})
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{Message: "Text saved successfully", Saved: true})
}

// writeError maps service errors to responses. Internal detail stays in the log.
func (h *SubmissionHandler) writeError(c *gin.Context, err error) {
	var retry *errs.RetryError
	switch {
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, validationBody(err))
	case errors.As(err, &retry):
		secs := int(math.Ceil(retry.After.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, errorBody{
			Error:   "RateLimited",
			Message: fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before submitting again.", secs),
		})
	default:
		h.log.Error("submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "Internal server error", Message: "Internal server error"})
	}
}

func validationBody(err error) errorBody {
	if errors.Is(err, errs.ErrTextTooLong) {
		return errorBody{Error: "TextTooLong", Message: "Text cannot exceed 25 characters"}
	}
	return errorBody{Error: "EmptyText", Message: "Text cannot be empty"}
}

// Health is a liveness probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready checks that the log store is reachable.
func Ready(p Pinger, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			log.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
