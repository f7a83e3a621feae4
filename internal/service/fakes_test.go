package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/repository"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

var testNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type studentStub struct {
	students map[string]*models.Student
	err      error
}

func (s *studentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type classroomStub struct {
	classrooms map[string]*models.Classroom
}

func (s *classroomStub) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if classroom, ok := s.classrooms[id]; ok {
		return classroom, nil
	}
	return nil, sql.ErrNoRows
}

type policyStoreStub struct {
	policies  map[string]*models.ProgressionPolicy
	finds     int
	upserted  []*models.ProgressionPolicy
	upsertErr error
}

func (s *policyStoreStub) FindByClassroom(ctx context.Context, classroomID string) (*models.ProgressionPolicy, error) {
	s.finds++
	if policy, ok := s.policies[classroomID]; ok {
		return policy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *policyStoreStub) Upsert(ctx context.Context, policy *models.ProgressionPolicy) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, policy)
	s.policies[policy.ClassroomID] = policy
	return nil
}

type memoryCache struct {
	items   map[string][]byte
	deleted []string
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.items, key)
	return nil
}

type progressStub struct {
	levels   map[string]map[string]int
	applyErr error
	applied  int
}

func newProgressStub() *progressStub {
	return &progressStub{levels: map[string]map[string]int{}}
}

func (s *progressStub) rows(studentID string) map[string]int {
	rows, ok := s.levels[studentID]
	if !ok {
		rows = map[string]int{}
		s.levels[studentID] = rows
	}
	return rows
}

func (s *progressStub) ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error) {
	var out []models.StudentProgress
	for op, level := range s.levels[studentID] {
		out = append(out, models.StudentProgress{StudentID: studentID, Operation: op, Level: level})
	}
	return out, nil
}

func (s *progressStub) EnsureLevels(ctx context.Context, studentID string, operations []string) error {
	rows := s.rows(studentID)
	for _, op := range operations {
		if _, ok := rows[op]; !ok {
			rows[op] = 1
		}
	}
	return nil
}

func (s *progressStub) UpsertLevels(ctx context.Context, studentID string, updates []models.LevelUpdate) error {
	rows := s.rows(studentID)
	for _, u := range updates {
		rows[u.Operation] = u.Level
	}
	return nil
}

func (s *progressStub) ApplyLevels(ctx context.Context, studentID string, operations []string, decide func(current map[string]int) ([]models.LevelUpdate, error)) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	if err := s.EnsureLevels(ctx, studentID, operations); err != nil {
		return err
	}
	current := make(map[string]int)
	for op, level := range s.rows(studentID) {
		current[op] = level
	}
	updates, err := decide(current)
	if err != nil {
		return err
	}
	s.applied++
	return s.UpsertLevels(ctx, studentID, updates)
}

type assignmentStub struct {
	assignments map[string]*models.Assignment
}

func (s *assignmentStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if assignment, ok := s.assignments[id]; ok {
		return assignment, nil
	}
	return nil, sql.ErrNoRows
}

type attemptStub struct {
	attempts map[string]*models.Attempt
	items    map[string][]models.AttemptItem
	// hideExisting makes the pre-insert lookup miss so the insert races.
	hideExisting bool
	createErr    error
}

func newAttemptStub() *attemptStub {
	return &attemptStub{attempts: map[string]*models.Attempt{}, items: map[string][]models.AttemptItem{}}
}

func attemptKey(studentID, assignmentID string) string {
	return studentID + "|" + assignmentID
}

func (s *attemptStub) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Attempt, error) {
	if s.hideExisting {
		return nil, nil
	}
	return s.attempts[attemptKey(studentID, assignmentID)], nil
}

func (s *attemptStub) ListItems(ctx context.Context, attemptID string) ([]models.AttemptItem, error) {
	return s.items[attemptID], nil
}

func (s *attemptStub) CreateWithItems(ctx context.Context, attempt *models.Attempt, items []models.AttemptItem) error {
	if s.createErr != nil {
		return s.createErr
	}
	key := attemptKey(attempt.StudentID, attempt.AssignmentID)
	if _, exists := s.attempts[key]; exists {
		return repository.ErrDuplicateAttempt
	}
	attempt.ID = fmt.Sprintf("attempt-%d", len(s.attempts)+1)
	for i := range items {
		items[i].AttemptID = attempt.ID
	}
	s.attempts[key] = attempt
	s.items[attempt.ID] = items
	return nil
}

type testStack struct {
	students    *studentStub
	classrooms  *classroomStub
	policyStore *policyStoreStub
	cache       *memoryCache
	progress    *progressStub
	assignments *assignmentStub
	attempts    *attemptStub

	policies    *PolicyService
	progression *ProgressionService
	workflow    *AssignmentService
}

// newTestStack seeds one classroom with a MUL then DIV policy capped at 12,
// a student in it at MUL level 12 and an open five-question assessment.
func newTestStack() *testStack {
	closes := testNow.Add(time.Hour)
	st := &testStack{
		students: &studentStub{students: map[string]*models.Student{
			"student-1": {ID: "student-1", ClassroomID: "class-1", FullName: "Ada"},
			"student-2": {ID: "student-2", ClassroomID: "class-1", FullName: "Grace"},
			"student-9": {ID: "student-9", ClassroomID: "class-9", FullName: "Other"},
		}},
		classrooms: &classroomStub{classrooms: map[string]*models.Classroom{
			"class-1": {ID: "class-1", TeacherID: "teacher-1", Name: "3B"},
			"class-9": {ID: "class-9", TeacherID: "teacher-9", Name: "4A"},
		}},
		policyStore: &policyStoreStub{policies: map[string]*models.ProgressionPolicy{
			"class-1": {ClassroomID: "class-1", EnabledOperations: []string{"MUL", "DIV"}, OperationOrder: []string{"MUL", "DIV"}, MaxNumber: 12},
		}},
		cache:    newMemoryCache(),
		progress: newProgressStub(),
		assignments: &assignmentStub{assignments: map[string]*models.Assignment{
			"asg-1": {
				ID:           "asg-1",
				ClassroomID:  "class-1",
				TargetKind:   models.AssignmentKindAssessment,
				NumQuestions: 5,
				OpensAt:      testNow.Add(-time.Hour),
				ClosesAt:     &closes,
			},
		}},
		attempts: newAttemptStub(),
	}
	st.progress.levels["student-1"] = map[string]int{"MUL": 12}

	st.policies = NewPolicyService(st.policyStore, st.classrooms, st.cache, nil, time.Minute, nil, nil)
	st.progression = NewProgressionService(st.progress, st.students, st.policies, st.policies, nil, nil, nil)
	st.workflow = NewAssignmentService(st.assignments, st.students, st.attempts, st.policies, st.progression, nil,
		AssessmentConfig{DefaultNumQuestions: 10, MaxNumQuestions: 30}, nil)
	return st
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}
