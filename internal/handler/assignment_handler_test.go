package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/middleware"
	"github.com/noah-isme/mathfacts-api/internal/models"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

type assignmentWorkflowMock struct {
	view        *dto.AssignmentView
	result      *dto.SubmitResult
	err         error
	lastStudent string
	lastID      string
	lastReq     dto.SubmitRequest
	lastNow     time.Time
}

func (m *assignmentWorkflowMock) Load(ctx context.Context, studentID, assignmentID string, now time.Time) (*dto.AssignmentView, error) {
	m.lastStudent, m.lastID, m.lastNow = studentID, assignmentID, now
	return m.view, m.err
}

func (m *assignmentWorkflowMock) Submit(ctx context.Context, studentID, assignmentID string, req dto.SubmitRequest, now time.Time) (*dto.SubmitResult, error) {
	m.lastStudent, m.lastID, m.lastReq, m.lastNow = studentID, assignmentID, req, now
	return m.result, m.err
}

var fixedNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func newAssignmentContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestAssignmentHandlerLoad(t *testing.T) {
	mockSvc := &assignmentWorkflowMock{view: &dto.AssignmentView{AssignmentID: "asg-1", Status: models.AssignmentStatusNotOpen}}
	handler := NewAssignmentHandler(mockSvc, nil)
	handler.now = func() time.Time { return fixedNow }

	c, w := newAssignmentContext(http.MethodGet, "/student/assignments/asg-1", "", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Load(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", mockSvc.lastStudent)
	assert.Equal(t, "asg-1", mockSvc.lastID)
	assert.Equal(t, fixedNow, mockSvc.lastNow)

	var body struct {
		Data dto.AssignmentView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.AssignmentStatusNotOpen, body.Data.Status)
}

func TestAssignmentHandlerRequiresClaims(t *testing.T) {
	handler := NewAssignmentHandler(&assignmentWorkflowMock{}, nil)

	c, w := newAssignmentContext(http.MethodGet, "/student/assignments/asg-1", "", nil)
	handler.Load(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssignmentHandlerSubmit(t *testing.T) {
	mockSvc := &assignmentWorkflowMock{result: &dto.SubmitResult{AttemptID: "attempt-1", Score: 4, Total: 5, Percent: 80}}
	handler := NewAssignmentHandler(mockSvc, nil)

	c, w := newAssignmentContext(http.MethodPost, "/student/assignments/asg-1/submit",
		`{"answers":{"1":"12","2":7,"3":null,"4":""}}`, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, dto.AnswerValue("12"), mockSvc.lastReq.Answers["1"])
	assert.Equal(t, dto.AnswerValue("7"), mockSvc.lastReq.Answers["2"])
	assert.Equal(t, dto.AnswerValue(""), mockSvc.lastReq.Answers["3"])
	assert.Equal(t, dto.AnswerValue(""), mockSvc.lastReq.Answers["4"])
}

func TestAssignmentHandlerSubmitInvalidBody(t *testing.T) {
	mockSvc := &assignmentWorkflowMock{}
	handler := NewAssignmentHandler(mockSvc, nil)

	c, w := newAssignmentContext(http.MethodPost, "/student/assignments/asg-1/submit", `{"answers":`, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastStudent)
}

func TestAssignmentHandlerConflict(t *testing.T) {
	mockSvc := &assignmentWorkflowMock{err: appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")}
	handler := NewAssignmentHandler(mockSvc, nil)

	c, w := newAssignmentContext(http.MethodPost, "/student/assignments/asg-1/submit", `{"answers":{}}`, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Submit(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "assignment already submitted")
}

func TestAssignmentHandlerForbiddenIsLoggedAndOpaque(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mockSvc := &assignmentWorkflowMock{err: appErrors.Clone(appErrors.ErrForbidden, "assignment is not available to this student")}
	handler := NewAssignmentHandler(mockSvc, zap.New(core))

	c, w := newAssignmentContext(http.MethodGet, "/student/assignments/asg-1", "", &models.JWTClaims{UserID: "student-9", Role: models.RoleStudent})
	handler.Load(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "assignment is not available")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "assignment access denied", entry.Message)
	assert.Equal(t, "student-9", entry.ContextMap()["student_id"])
}
