package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
	"github.com/noah-isme/mathfacts-api/pkg/response"
)

type progressionService interface {
	Progress(ctx context.Context, studentID string) (*dto.ProgressView, error)
	Place(ctx context.Context, classroomID, studentID string, req dto.PlacementRequest, actor *models.JWTClaims) (*dto.PlacementResponse, error)
	Override(ctx context.Context, classroomID, studentID string, req dto.MasteryRequest, actor *models.JWTClaims) (*mastery.Transition, error)
}

// ProgressHandler exposes student levels, placement and mastery overrides.
type ProgressHandler struct {
	service progressionService
}

// NewProgressHandler builds a new handler.
func NewProgressHandler(service progressionService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Mine godoc
// @Summary Current student's levels per operation
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/progress [get]
func (h *ProgressHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.service.Progress(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Place godoc
// @Summary Initialise a student's levels
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.PlacementRequest true "Placement payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students/{studentId}/placement [post]
func (h *ProgressHandler) Place(c *gin.Context) {
	var req dto.PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid placement payload"))
		return
	}
	resp, err := h.service.Place(c.Request.Context(), c.Param("id"), c.Param("studentId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Mastery godoc
// @Summary Apply a full-mastery result to a student's operation
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.MasteryRequest true "Operation"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students/{studentId}/mastery [post]
func (h *ProgressHandler) Mastery(c *gin.Context) {
	var req dto.MasteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mastery payload"))
		return
	}
	transition, err := h.service.Override(c.Request.Context(), c.Param("id"), c.Param("studentId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transition)
}
