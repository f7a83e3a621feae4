package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/models"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
	"github.com/noah-isme/mathfacts-api/pkg/response"
)

type policyService interface {
	Get(ctx context.Context, classroomID string, actor *models.JWTClaims) (*dto.PolicyResponse, error)
	Update(ctx context.Context, classroomID string, req dto.UpdatePolicyRequest, actor *models.JWTClaims) (*dto.PolicyResponse, error)
}

// PolicyHandler exposes classroom progression policy endpoints.
type PolicyHandler struct {
	service policyService
}

// NewPolicyHandler builds a new handler.
func NewPolicyHandler(service policyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// Get godoc
// @Summary Resolved progression policy of a classroom
// @Tags Policies
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/policy [get]
func (h *PolicyHandler) Get(c *gin.Context) {
	policy, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy)
}

// Update godoc
// @Summary Replace a classroom's progression policy
// @Tags Policies
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body dto.UpdatePolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classrooms/{id}/policy [put]
func (h *PolicyHandler) Update(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid policy payload"))
		return
	}
	policy, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy)
}
