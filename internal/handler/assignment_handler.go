package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
	"github.com/noah-isme/mathfacts-api/pkg/middleware/requestid"
	"github.com/noah-isme/mathfacts-api/pkg/response"
)

type assignmentWorkflow interface {
	Load(ctx context.Context, studentID, assignmentID string, now time.Time) (*dto.AssignmentView, error)
	Submit(ctx context.Context, studentID, assignmentID string, req dto.SubmitRequest, now time.Time) (*dto.SubmitResult, error)
}

// AssignmentHandler exposes the student assessment endpoints.
type AssignmentHandler struct {
	service assignmentWorkflow
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentWorkflow, logger *zap.Logger) *AssignmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentHandler{service: service, logger: logger, now: time.Now}
}

// Load godoc
// @Summary Load an assessment for the current student
// @Description Returns READY with questions, NOT_OPEN, CLOSED, or ALREADY_SUBMITTED with the stored result.
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/assignments/{id} [get]
func (h *AssignmentHandler) Load(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignmentID := c.Param("id")
	view, err := h.service.Load(c.Request.Context(), claims.UserID, assignmentID, h.now())
	if err != nil {
		h.fail(c, claims.UserID, assignmentID, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Submit godoc
// @Summary Submit answers for an assessment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubmitRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	assignmentID := c.Param("id")
	result, err := h.service.Submit(c.Request.Context(), claims.UserID, assignmentID, req, h.now())
	if err != nil {
		h.fail(c, claims.UserID, assignmentID, err)
		return
	}
	response.Created(c, result)
}

func (h *AssignmentHandler) fail(c *gin.Context, studentID, assignmentID string, err error) {
	if errors.Is(err, appErrors.ErrForbidden) {
		h.logger.Warn("assignment access denied",
			zap.String("student_id", studentID),
			zap.String("assignment_id", assignmentID),
			zap.String("request_id", requestid.Value(c)),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.Error(c, err)
}
