package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/repository"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

func TestPolicyResolveUsesCache(t *testing.T) {
	st := newTestStack()
	metrics := NewMetricsService()
	st.policies.metrics = metrics

	first, err := st.policies.Resolve(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, mastery.OperationMul, first.PrimaryOperation)
	assert.Equal(t, []mastery.Operation{mastery.OperationMul, mastery.OperationDiv}, first.OperationOrder)

	second, err := st.policies.Resolve(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.policyStore.finds)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
}

func TestPolicyResolveFallsBackWhenCacheFails(t *testing.T) {
	st := newTestStack()
	st.cache.getErr = errors.New("connection refused")

	policy, err := st.policies.Resolve(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 12, policy.MaxNumber)
	assert.Equal(t, 1, st.policyStore.finds)
}

func TestPolicyResolveRepairsStoredOrder(t *testing.T) {
	st := newTestStack()
	st.policyStore.policies["class-1"] = &models.ProgressionPolicy{
		ClassroomID:       "class-1",
		EnabledOperations: []string{"add", "SUB", "ADD"},
		OperationOrder:    []string{"MUL"},
		MaxNumber:         250,
	}

	policy, err := st.policies.Resolve(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, []mastery.Operation{mastery.OperationAdd, mastery.OperationSub}, policy.OperationOrder)
	assert.Equal(t, mastery.MaxMaxNumber, policy.MaxNumber)
}

func TestPolicyResolveErrors(t *testing.T) {
	st := newTestStack()

	_, err := st.policies.Resolve(context.Background(), "class-9")
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	st.policyStore.policies["class-9"] = &models.ProgressionPolicy{ClassroomID: "class-9", MaxNumber: 10}
	_, err = st.policies.Resolve(context.Background(), "class-9")
	require.ErrorIs(t, err, appErrors.ErrConfiguration)
	assert.ErrorIs(t, err, mastery.ErrNoOperations)
}

func TestPolicyAuthorizeTeacher(t *testing.T) {
	st := newTestStack()
	ctx := context.Background()

	_, err := st.policies.AuthorizeTeacher(ctx, "class-1", nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = st.policies.AuthorizeTeacher(ctx, "class-1", teacherClaims("teacher-9"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = st.policies.AuthorizeTeacher(ctx, "class-1", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = st.policies.AuthorizeTeacher(ctx, "missing", teacherClaims("teacher-1"))
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	classroom, err := st.policies.AuthorizeTeacher(ctx, "class-1", teacherClaims("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, "3B", classroom.Name)

	_, err = st.policies.AuthorizeTeacher(ctx, "class-1", &models.JWTClaims{UserID: "root", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestPolicyGet(t *testing.T) {
	st := newTestStack()

	resp, err := st.policies.Get(context.Background(), "class-1", teacherClaims("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, &dto.PolicyResponse{
		ClassroomID:       "class-1",
		EnabledOperations: []string{"MUL", "DIV"},
		OperationOrder:    []string{"MUL", "DIV"},
		PrimaryOperation:  "MUL",
		MaxNumber:         12,
	}, resp)
}

func TestPolicyUpdate(t *testing.T) {
	st := newTestStack()
	ctx := context.Background()
	_, err := st.policies.Resolve(ctx, "class-1")
	require.NoError(t, err)

	resp, err := st.policies.Update(ctx, "class-1", dto.UpdatePolicyRequest{
		EnabledOperations: []string{"add", "mul", "sub"},
		OperationOrder:    []string{"SUB", "ADD"},
		MaxNumber:         10,
	}, teacherClaims("teacher-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"SUB", "ADD", "MUL"}, resp.OperationOrder)
	assert.Equal(t, "SUB", resp.PrimaryOperation)
	require.Len(t, st.policyStore.upserted, 1)
	assert.Equal(t, []string{"ADD", "MUL", "SUB"}, []string(st.policyStore.upserted[0].EnabledOperations))
	assert.Contains(t, st.cache.deleted, repository.PolicyCacheKey("class-1"))

	policy, err := st.policies.Resolve(ctx, "class-1")
	require.NoError(t, err)
	assert.Equal(t, mastery.OperationSub, policy.PrimaryOperation)
	assert.Equal(t, 10, policy.MaxNumber)
}

func TestPolicyUpdateValidation(t *testing.T) {
	st := newTestStack()
	ctx := context.Background()
	actor := teacherClaims("teacher-1")

	cases := []dto.UpdatePolicyRequest{
		{EnabledOperations: nil, MaxNumber: 10},
		{EnabledOperations: []string{"POW"}, MaxNumber: 10},
		{EnabledOperations: []string{"ADD"}, MaxNumber: 0},
		{EnabledOperations: []string{"ADD"}, MaxNumber: 101},
		{EnabledOperations: []string{"ADD"}, OperationOrder: []string{"MOD"}, MaxNumber: 10},
	}
	for _, req := range cases {
		_, err := st.policies.Update(ctx, "class-1", req, actor)
		require.ErrorIs(t, err, appErrors.ErrValidation, "request %+v", req)
	}
	assert.Empty(t, st.policyStore.upserted)

	_, err := st.policies.Update(ctx, "class-1", dto.UpdatePolicyRequest{EnabledOperations: []string{"ADD"}, MaxNumber: 10}, teacherClaims("teacher-9"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
