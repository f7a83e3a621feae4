package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

type progressStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error)
	EnsureLevels(ctx context.Context, studentID string, operations []string) error
	UpsertLevels(ctx context.Context, studentID string, updates []models.LevelUpdate) error
	ApplyLevels(ctx context.Context, studentID string, operations []string, decide func(current map[string]int) ([]models.LevelUpdate, error)) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type policyResolver interface {
	Resolve(ctx context.Context, classroomID string) (*mastery.Policy, error)
}

type classroomAuthorizer interface {
	AuthorizeTeacher(ctx context.Context, classroomID string, actor *models.JWTClaims) (*models.Classroom, error)
}

// ProgressionService owns student levels: lazy row creation, placement and
// the promotion state machine.
type ProgressionService struct {
	progress  progressStore
	students  studentReader
	policies  policyResolver
	authz     classroomAuthorizer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgressionService constructs a ProgressionService.
func NewProgressionService(
	progress progressStore,
	students studentReader,
	policies policyResolver,
	authz classroomAuthorizer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProgressionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{
		progress:  progress,
		students:  students,
		policies:  policies,
		authz:     authz,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Levels returns the student's level for every enabled operation, creating
// missing rows at level 1 first. Levels above a lowered cap read as the cap.
func (s *ProgressionService) Levels(ctx context.Context, studentID string, policy *mastery.Policy) (map[mastery.Operation]int, error) {
	if err := s.progress.EnsureLevels(ctx, studentID, mastery.Strings(policy.EnabledOperations)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialise student progress")
	}
	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student progress")
	}

	stored := make(map[string]int, len(rows))
	for _, row := range rows {
		stored[row.Operation] = row.Level
	}
	levels := make(map[mastery.Operation]int, len(policy.EnabledOperations))
	for _, op := range policy.EnabledOperations {
		levels[op] = mastery.ClampLevel(stored[string(op)], policy.MaxNumber)
	}
	return levels, nil
}

// CurrentLevel returns the student's level on op. Operations the policy does
// not enable read as level 1.
func (s *ProgressionService) CurrentLevel(ctx context.Context, studentID string, policy *mastery.Policy, op mastery.Operation) (int, error) {
	levels, err := s.Levels(ctx, studentID, policy)
	if err != nil {
		return 0, err
	}
	if level, ok := levels[op]; ok {
		return level, nil
	}
	return 1, nil
}

// Progress returns the student's levels in policy order along with the
// operation they are currently working on.
func (s *ProgressionService) Progress(ctx context.Context, studentID string) (*dto.ProgressView, error) {
	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.Resolve(ctx, student.ClassroomID)
	if err != nil {
		return nil, err
	}
	levels, err := s.Levels(ctx, studentID, policy)
	if err != nil {
		return nil, err
	}

	view := &dto.ProgressView{
		StudentID:   studentID,
		ClassroomID: student.ClassroomID,
		MaxNumber:   policy.MaxNumber,
		Levels:      make([]dto.OperationLevel, 0, len(policy.OperationOrder)),
	}
	for _, op := range policy.OperationOrder {
		level := levels[op]
		view.Levels = append(view.Levels, dto.OperationLevel{Operation: string(op), Level: level})
		if view.CurrentOperation == "" && level < policy.MaxNumber {
			view.CurrentOperation = string(op)
		}
	}
	if view.CurrentOperation == "" {
		view.CurrentOperation = string(policy.OperationOrder[len(policy.OperationOrder)-1])
		view.CurriculumComplete = true
	}
	return view, nil
}

// ApplyMastery runs the promotion state machine for a full-mastery result on
// op. Rows are ensured, locked, decided and written in one transaction.
func (s *ProgressionService) ApplyMastery(ctx context.Context, studentID, classroomID string, op mastery.Operation) (*mastery.Transition, error) {
	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ClassroomID != classroomID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in classroom")
	}
	policy, err := s.policies.Resolve(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled(op) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "operation is not enabled for this classroom")
	}

	var transition mastery.Transition
	err = s.progress.ApplyLevels(ctx, studentID, mastery.Strings(policy.EnabledOperations), func(current map[string]int) ([]models.LevelUpdate, error) {
		level := mastery.ClampLevel(current[string(op)], policy.MaxNumber)
		transition = mastery.Promote(*policy, op, level)
		return toLevelUpdates(transition.Updates), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply mastery")
	}

	s.metrics.RecordPromotion(&transition)
	s.logger.Info("mastery applied",
		zap.String("student_id", studentID),
		zap.String("operation", string(op)),
		zap.Int("previous_level", transition.PreviousLevel),
		zap.Int("level", transition.Level),
		zap.Bool("promoted", transition.Promoted),
		zap.String("moved_to", string(transition.MovedTo)),
		zap.Bool("curriculum_complete", transition.CurriculumDone),
	)
	return &transition, nil
}

// Override lets a classroom's teacher apply a mastery result by hand.
func (s *ProgressionService) Override(ctx context.Context, classroomID, studentID string, req dto.MasteryRequest, actor *models.JWTClaims) (*mastery.Transition, error) {
	if _, err := s.authz.AuthorizeTeacher(ctx, classroomID, actor); err != nil {
		return nil, err
	}
	req.Operation = strings.ToUpper(strings.TrimSpace(req.Operation))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mastery payload")
	}
	transition, err := s.ApplyMastery(ctx, studentID, classroomID, mastery.Operation(req.Operation))
	if err != nil {
		return nil, err
	}
	s.logger.Info("mastery override", zap.String("actor_id", actor.UserID), zap.String("student_id", studentID))
	return transition, nil
}

// Place initialises a student's levels from a starting operation and a level
// amount. Operations before the start are treated as mastered and overflow
// beyond the cap spills into the following operations.
func (s *ProgressionService) Place(ctx context.Context, classroomID, studentID string, req dto.PlacementRequest, actor *models.JWTClaims) (*dto.PlacementResponse, error) {
	if _, err := s.authz.AuthorizeTeacher(ctx, classroomID, actor); err != nil {
		return nil, err
	}
	req.StartOperation = strings.ToUpper(strings.TrimSpace(req.StartOperation))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}

	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ClassroomID != classroomID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in classroom")
	}
	policy, err := s.policies.Resolve(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	start := mastery.Operation(req.StartOperation)
	if !policy.Enabled(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startOperation is not enabled for this classroom")
	}

	placement := mastery.Placement(*policy, start, req.LevelAmount)
	if err := s.progress.UpsertLevels(ctx, studentID, toLevelUpdates(placement)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save placement")
	}

	s.logger.Info("student placed",
		zap.String("student_id", studentID),
		zap.String("start_operation", req.StartOperation),
		zap.Int("level_amount", req.LevelAmount),
		zap.String("actor_id", actor.UserID),
	)
	return &dto.PlacementResponse{StudentID: studentID, Levels: dto.LevelsFromAssignments(placement)}, nil
}

func (s *ProgressionService) findStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func toLevelUpdates(pairs []mastery.LevelAssignment) []models.LevelUpdate {
	updates := make([]models.LevelUpdate, 0, len(pairs))
	for _, p := range pairs {
		updates = append(updates, models.LevelUpdate{Operation: string(p.Operation), Level: p.Level})
	}
	return updates
}
