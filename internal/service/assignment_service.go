package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/repository"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type attemptStore interface {
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Attempt, error)
	ListItems(ctx context.Context, attemptID string) ([]models.AttemptItem, error)
	CreateWithItems(ctx context.Context, attempt *models.Attempt, items []models.AttemptItem) error
}

type progressionEngine interface {
	CurrentLevel(ctx context.Context, studentID string, policy *mastery.Policy, op mastery.Operation) (int, error)
	ApplyMastery(ctx context.Context, studentID, classroomID string, op mastery.Operation) (*mastery.Transition, error)
}

// AssessmentConfig bounds the size of a generated question set.
type AssessmentConfig struct {
	DefaultNumQuestions int
	MaxNumQuestions     int
}

// AssignmentService runs the load and submit protocol for timed assessments.
type AssignmentService struct {
	assignments assignmentReader
	students    studentReader
	attempts    attemptStore
	policies    policyResolver
	progression progressionEngine
	metrics     *MetricsService
	config      AssessmentConfig
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(
	assignments assignmentReader,
	students studentReader,
	attempts attemptStore,
	policies policyResolver,
	progression progressionEngine,
	metrics *MetricsService,
	cfg AssessmentConfig,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultNumQuestions <= 0 {
		cfg.DefaultNumQuestions = 20
	}
	if cfg.MaxNumQuestions < cfg.DefaultNumQuestions {
		cfg.MaxNumQuestions = cfg.DefaultNumQuestions
	}
	return &AssignmentService{
		assignments: assignments,
		students:    students,
		attempts:    attempts,
		policies:    policies,
		progression: progression,
		metrics:     metrics,
		config:      cfg,
		logger:      logger,
	}
}

type assessmentPlan struct {
	policy    *mastery.Policy
	operation mastery.Operation
	level     int
	questions []mastery.Question
}

// Load returns the assignment state for the student. A stored attempt is
// reported before the time window is considered, so past results stay
// visible outside the window.
func (s *AssignmentService) Load(ctx context.Context, studentID, assignmentID string, now time.Time) (*dto.AssignmentView, error) {
	student, assignment, err := s.authorize(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}

	view := &dto.AssignmentView{
		AssignmentID: assignment.ID,
		OpensAt:      assignment.OpensAt,
		ClosesAt:     assignment.ClosesAt,
	}

	attempt, err := s.findAttempt(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}
	if attempt != nil {
		items, err := s.attempts.ListItems(ctx, attempt.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt items")
		}
		view.Status = models.AssignmentStatusAlreadySubmitted
		view.Result = toAttemptResult(attempt, items)
		return view, nil
	}

	if status := windowStatus(assignment, now); status != models.AssignmentStatusReady {
		view.Status = status
		return view, nil
	}

	plan, err := s.plan(ctx, student, assignment)
	if err != nil {
		return nil, err
	}
	view.Status = models.AssignmentStatusReady
	view.Operation = string(plan.operation)
	view.Level = plan.level
	view.MaxNumber = plan.policy.MaxNumber
	view.Questions = toQuestionViews(plan.questions)
	return view, nil
}

// Submit grades the student's answers against a regenerated question set and
// stores the attempt with its items. The time window is checked before the
// existing-attempt check. A full score triggers promotion after the attempt
// is committed; a promotion failure is logged and does not fail the submit.
//
// The set is rebuilt from the level current at submit time. If the student's
// level on the operation changed after Load, for example through another
// mastered assignment, the answers are graded against the new set rather
// than the one that was displayed.
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID string, req dto.SubmitRequest, now time.Time) (*dto.SubmitResult, error) {
	student, assignment, err := s.authorize(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}

	switch windowStatus(assignment, now) {
	case models.AssignmentStatusNotOpen:
		s.metrics.RecordConflict(ConflictNotOpen)
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is not open yet")
	case models.AssignmentStatusClosed:
		s.metrics.RecordConflict(ConflictClosed)
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is closed")
	}

	existing, err := s.findAttempt(ctx, studentID, assignmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordConflict(ConflictDuplicate)
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")
	}

	plan, err := s.plan(ctx, student, assignment)
	if err != nil {
		return nil, err
	}

	attempt := &models.Attempt{
		StudentID:       studentID,
		AssignmentID:    assignmentID,
		Total:           len(plan.questions),
		CompletedAt:     now.UTC(),
		OperationAtTime: string(plan.operation),
		LevelAtTime:     plan.level,
		MaxNumberAtTime: plan.policy.MaxNumber,
	}
	items := make([]models.AttemptItem, 0, len(plan.questions))
	for _, q := range plan.questions {
		correct, err := mastery.Answer(q.Operation, q.OperandA, q.OperandB)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade question")
		}
		given := parseAnswer(req.Answers[strconv.Itoa(q.ID)])
		isCorrect := given != models.UnansweredSentinel && given == correct
		if isCorrect {
			attempt.Score++
		}
		items = append(items, models.AttemptItem{
			Position:      q.ID,
			OperandA:      q.OperandA,
			OperandB:      q.OperandB,
			CorrectAnswer: correct,
			GivenAnswer:   given,
			IsCorrect:     isCorrect,
		})
	}

	if err := s.attempts.CreateWithItems(ctx, attempt, items); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			s.metrics.RecordConflict(ConflictDuplicate)
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attempt")
	}
	s.metrics.RecordSubmission(plan.operation, attempt.Score, attempt.Total)

	result := &dto.SubmitResult{
		AttemptID:  attempt.ID,
		Score:      attempt.Score,
		Total:      attempt.Total,
		Percent:    percent(attempt.Score, attempt.Total),
		WasMastery: attempt.IsMastery(),
	}

	if attempt.IsMastery() {
		if !plan.policy.Enabled(plan.operation) {
			s.logger.Info("mastery on operation outside classroom policy, no promotion",
				zap.String("student_id", studentID),
				zap.String("operation", string(plan.operation)),
			)
		} else {
			transition, err := s.progression.ApplyMastery(ctx, studentID, student.ClassroomID, plan.operation)
			if err != nil {
				s.logger.Error("promotion failed after attempt was recorded",
					zap.String("student_id", studentID),
					zap.String("assignment_id", assignmentID),
					zap.String("attempt_id", attempt.ID),
					zap.Error(err),
				)
			} else {
				result.Promotion = transition
			}
		}
	}

	s.logger.Info("attempt submitted",
		zap.String("student_id", studentID),
		zap.String("assignment_id", assignmentID),
		zap.String("attempt_id", attempt.ID),
		zap.Int("score", attempt.Score),
		zap.Int("total", attempt.Total),
	)
	return result, nil
}

func (s *AssignmentService) authorize(ctx context.Context, studentID, assignmentID string) (*models.Student, *models.Assignment, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.ClassroomID != student.ClassroomID || !assignment.Targets(studentID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "assignment is not available to this student")
	}
	if assignment.TargetKind != models.AssignmentKindAssessment {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only timed assessments are supported")
	}
	return student, assignment, nil
}

func (s *AssignmentService) findAttempt(ctx context.Context, studentID, assignmentID string) (*models.Attempt, error) {
	attempt, err := s.attempts.FindByStudentAndAssignment(ctx, studentID, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	return attempt, nil
}

func (s *AssignmentService) plan(ctx context.Context, student *models.Student, assignment *models.Assignment) (*assessmentPlan, error) {
	policy, err := s.policies.Resolve(ctx, student.ClassroomID)
	if err != nil {
		return nil, err
	}

	op := policy.PrimaryOperation
	if assignment.Operation != nil && strings.TrimSpace(*assignment.Operation) != "" {
		parsed, err := mastery.ParseOperation(*assignment.Operation)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "assignment operation is not recognised")
		}
		op = parsed
	}

	level, err := s.progression.CurrentLevel(ctx, student.ID, policy, op)
	if err != nil {
		return nil, err
	}

	seed := mastery.Seed(assignment.ID, student.ID)
	return &assessmentPlan{
		policy:    policy,
		operation: op,
		level:     level,
		questions: mastery.Generate(seed, op, level, policy.MaxNumber, s.questionCount(assignment.NumQuestions)),
	}, nil
}

func (s *AssignmentService) questionCount(requested int) int {
	if requested <= 0 {
		return s.config.DefaultNumQuestions
	}
	if requested > s.config.MaxNumQuestions {
		return s.config.MaxNumQuestions
	}
	return requested
}

func windowStatus(a *models.Assignment, now time.Time) models.AssignmentStatus {
	if now.Before(a.OpensAt) {
		return models.AssignmentStatusNotOpen
	}
	if a.ClosesAt != nil && now.After(*a.ClosesAt) {
		return models.AssignmentStatusClosed
	}
	return models.AssignmentStatusReady
}

// parseAnswer maps blank, non-numeric and negative input to the unanswered sentinel.
func parseAnswer(v dto.AnswerValue) int {
	raw := strings.TrimSpace(string(v))
	if raw == "" {
		return models.UnansweredSentinel
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return models.UnansweredSentinel
	}
	return n
}

func percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(total)))
}

func toQuestionViews(questions []mastery.Question) []dto.QuestionView {
	out := make([]dto.QuestionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, dto.QuestionView{
			ID:        q.ID,
			Operation: string(q.Operation),
			Symbol:    q.Operation.Symbol(),
			OperandA:  q.OperandA,
			OperandB:  q.OperandB,
		})
	}
	return out
}

func toAttemptResult(a *models.Attempt, items []models.AttemptItem) *dto.AttemptResult {
	return &dto.AttemptResult{
		AttemptID:   a.ID,
		Score:       a.Score,
		Total:       a.Total,
		Percent:     percent(a.Score, a.Total),
		WasMastery:  a.IsMastery(),
		CompletedAt: a.CompletedAt,
		Operation:   a.OperationAtTime,
		Level:       a.LevelAtTime,
		MaxNumber:   a.MaxNumberAtTime,
		Items:       items,
	}
}
