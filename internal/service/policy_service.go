package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/repository"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

type policyStore interface {
	FindByClassroom(ctx context.Context, classroomID string) (*models.ProgressionPolicy, error)
	Upsert(ctx context.Context, policy *models.ProgressionPolicy) error
}

type classroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PolicyService resolves and edits classroom progression policies.
type PolicyService struct {
	policies   policyStore
	classrooms classroomReader
	cache      policyCache
	metrics    *MetricsService
	ttl        time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPolicyService constructs a PolicyService. cache and metrics may be nil.
func NewPolicyService(
	policies policyStore,
	classrooms classroomReader,
	cache policyCache,
	metrics *MetricsService,
	ttl time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *PolicyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PolicyService{
		policies:   policies,
		classrooms: classrooms,
		cache:      cache,
		metrics:    metrics,
		ttl:        ttl,
		validator:  validate,
		logger:     logger,
	}
}

// Resolve returns the normalised policy of a classroom.
func (s *PolicyService) Resolve(ctx context.Context, classroomID string) (*mastery.Policy, error) {
	key := repository.PolicyCacheKey(classroomID)
	if s.cache != nil {
		var cached mastery.Policy
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		case errors.Is(err, appErrors.ErrCacheMiss):
			s.metrics.RecordCacheOperation(false)
		default:
			s.logger.Warn("policy cache read failed", zap.String("classroom_id", classroomID), zap.Error(err))
		}
	}

	stored, err := s.policies.FindByClassroom(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "progression policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progression policy")
	}

	policy, err := resolveStoredPolicy(stored)
	if err != nil {
		s.logger.Error("classroom policy is unusable", zap.String("classroom_id", classroomID), zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, policy, s.ttl); err != nil {
			s.logger.Warn("policy cache write failed", zap.String("classroom_id", classroomID), zap.Error(err))
		}
	}
	return &policy, nil
}

// Get returns the resolved policy to the classroom's teacher or an admin.
func (s *PolicyService) Get(ctx context.Context, classroomID string, actor *models.JWTClaims) (*dto.PolicyResponse, error) {
	if _, err := s.AuthorizeTeacher(ctx, classroomID, actor); err != nil {
		return nil, err
	}
	policy, err := s.Resolve(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	return toPolicyResponse(classroomID, policy), nil
}

// Update validates, resolves and stores a new policy for the classroom.
// Student progress rows for newly enabled operations are created lazily on
// next access.
func (s *PolicyService) Update(ctx context.Context, classroomID string, req dto.UpdatePolicyRequest, actor *models.JWTClaims) (*dto.PolicyResponse, error) {
	if _, err := s.AuthorizeTeacher(ctx, classroomID, actor); err != nil {
		return nil, err
	}

	req.EnabledOperations = normalizeCodes(req.EnabledOperations)
	req.OperationOrder = normalizeCodes(req.OperationOrder)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid policy payload")
	}

	policy, err := mastery.ResolvePolicy(mastery.ParseOperations(req.EnabledOperations), mastery.ParseOperations(req.OperationOrder), req.MaxNumber)
	if err != nil {
		return nil, configurationError(err)
	}

	stored := &models.ProgressionPolicy{
		ClassroomID:       classroomID,
		EnabledOperations: mastery.Strings(policy.EnabledOperations),
		OperationOrder:    mastery.Strings(policy.OperationOrder),
		MaxNumber:         policy.MaxNumber,
	}
	if err := s.policies.Upsert(ctx, stored); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progression policy")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, repository.PolicyCacheKey(classroomID)); err != nil {
			s.logger.Warn("policy cache invalidation failed", zap.String("classroom_id", classroomID), zap.Error(err))
		}
	}

	s.logger.Info("progression policy updated",
		zap.String("classroom_id", classroomID),
		zap.String("actor_id", actor.UserID),
		zap.Strings("operation_order", stored.OperationOrder),
		zap.Int("max_number", stored.MaxNumber),
	)
	return toPolicyResponse(classroomID, &policy), nil
}

// AuthorizeTeacher allows admins and the teacher owning the classroom.
func (s *PolicyService) AuthorizeTeacher(ctx context.Context, classroomID string, actor *models.JWTClaims) (*models.Classroom, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	switch actor.Role {
	case models.RoleAdmin:
		return classroom, nil
	case models.RoleTeacher:
		if classroom.TeacherID == actor.UserID {
			return classroom, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not the teacher of this classroom")
}

func resolveStoredPolicy(stored *models.ProgressionPolicy) (mastery.Policy, error) {
	policy, err := mastery.ResolvePolicy(
		mastery.ParseOperations(stored.EnabledOperations),
		mastery.ParseOperations(stored.OperationOrder),
		stored.MaxNumber,
	)
	if err != nil {
		return mastery.Policy{}, configurationError(err)
	}
	return policy, nil
}

func configurationError(err error) error {
	if errors.Is(err, mastery.ErrNoOperations) {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "progression policy has no enabled operations")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve progression policy")
}

func normalizeCodes(codes []string) []string {
	if codes == nil {
		return nil
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	return out
}

func toPolicyResponse(classroomID string, p *mastery.Policy) *dto.PolicyResponse {
	return &dto.PolicyResponse{
		ClassroomID:       classroomID,
		EnabledOperations: mastery.Strings(p.EnabledOperations),
		OperationOrder:    mastery.Strings(p.OperationOrder),
		PrimaryOperation:  string(p.PrimaryOperation),
		MaxNumber:         p.MaxNumber,
	}
}
