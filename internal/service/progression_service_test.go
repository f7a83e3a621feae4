package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathfacts-api/internal/dto"
	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
	appErrors "github.com/noah-isme/mathfacts-api/pkg/errors"
)

func TestProgressionApplyMastery(t *testing.T) {
	cases := []struct {
		name        string
		start       map[string]int
		op          mastery.Operation
		want        map[string]int
		promoted    bool
		movedTo     mastery.Operation
		curriculumD bool
	}{
		{name: "level up", start: map[string]int{"MUL": 7}, op: mastery.OperationMul, want: map[string]int{"MUL": 8, "DIV": 1}},
		{name: "roll over", start: map[string]int{"MUL": 12}, op: mastery.OperationMul, want: map[string]int{"MUL": 12, "DIV": 1}, promoted: true, movedTo: mastery.OperationDiv},
		{name: "end of curriculum", start: map[string]int{"MUL": 12, "DIV": 12}, op: mastery.OperationDiv, want: map[string]int{"MUL": 12, "DIV": 12}, curriculumD: true},
		{name: "stale level above lowered cap", start: map[string]int{"MUL": 20}, op: mastery.OperationMul, want: map[string]int{"MUL": 12, "DIV": 1}, promoted: true, movedTo: mastery.OperationDiv},
		{name: "missing rows backfilled", start: map[string]int{}, op: mastery.OperationDiv, want: map[string]int{"MUL": 1, "DIV": 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStack()
			st.progress.levels["student-1"] = tc.start

			transition, err := st.progression.ApplyMastery(context.Background(), "student-1", "class-1", tc.op)
			require.NoError(t, err)
			assert.Equal(t, tc.want, st.progress.levels["student-1"])
			assert.Equal(t, tc.promoted, transition.Promoted)
			assert.Equal(t, tc.movedTo, transition.MovedTo)
			assert.Equal(t, tc.curriculumD, transition.CurriculumDone)
		})
	}
}

func TestProgressionApplyMasteryRejectsOtherClassroom(t *testing.T) {
	st := newTestStack()

	_, err := st.progression.ApplyMastery(context.Background(), "student-9", "class-1", mastery.OperationMul)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = st.progression.ApplyMastery(context.Background(), "ghost", "class-1", mastery.OperationMul)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = st.progression.ApplyMastery(context.Background(), "student-1", "class-1", mastery.OperationAdd)
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Equal(t, 0, st.progress.applied)
}

func TestProgressionApplyMasteryRecordsMetrics(t *testing.T) {
	st := newTestStack()
	metrics := NewMetricsService()
	st.progression.metrics = metrics

	_, err := st.progression.ApplyMastery(context.Background(), "student-1", "class-1", mastery.OperationMul)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.promotions.WithLabelValues("MUL", "rollover")))
}

func TestProgressionProgress(t *testing.T) {
	st := newTestStack()

	view, err := st.progression.Progress(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", view.ClassroomID)
	assert.Equal(t, []dto.OperationLevel{{Operation: "MUL", Level: 12}, {Operation: "DIV", Level: 1}}, view.Levels)
	assert.Equal(t, "DIV", view.CurrentOperation)
	assert.False(t, view.CurriculumComplete)

	st.progress.levels["student-1"]["DIV"] = 12
	view, err = st.progression.Progress(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "DIV", view.CurrentOperation)
	assert.True(t, view.CurriculumComplete)
}

func TestProgressionCurrentLevel(t *testing.T) {
	st := newTestStack()
	policy, err := st.policies.Resolve(context.Background(), "class-1")
	require.NoError(t, err)

	level, err := st.progression.CurrentLevel(context.Background(), "student-1", policy, mastery.OperationMul)
	require.NoError(t, err)
	assert.Equal(t, 12, level)

	level, err = st.progression.CurrentLevel(context.Background(), "student-1", policy, mastery.OperationAdd)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
}

func TestProgressionPlace(t *testing.T) {
	st := newTestStack()
	st.policyStore.policies["class-1"] = &models.ProgressionPolicy{
		ClassroomID:       "class-1",
		EnabledOperations: []string{"ADD", "SUB", "MUL", "DIV"},
		MaxNumber:         10,
	}

	resp, err := st.progression.Place(context.Background(), "class-1", "student-2",
		dto.PlacementRequest{StartOperation: "sub", LevelAmount: 14}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, []dto.OperationLevel{
		{Operation: "ADD", Level: 10},
		{Operation: "SUB", Level: 10},
		{Operation: "MUL", Level: 4},
		{Operation: "DIV", Level: 1},
	}, resp.Levels)
	assert.Equal(t, map[string]int{"ADD": 10, "SUB": 10, "MUL": 4, "DIV": 1}, st.progress.levels["student-2"])
}

func TestProgressionPlaceErrors(t *testing.T) {
	st := newTestStack()
	ctx := context.Background()
	teacher := teacherClaims("teacher-1")

	_, err := st.progression.Place(ctx, "class-1", "student-2", dto.PlacementRequest{StartOperation: "ADD", LevelAmount: 3}, teacher)
	require.ErrorIs(t, err, appErrors.ErrValidation, "ADD is not enabled")

	_, err = st.progression.Place(ctx, "class-1", "student-2", dto.PlacementRequest{StartOperation: "MUL", LevelAmount: 0}, teacher)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = st.progression.Place(ctx, "class-1", "student-9", dto.PlacementRequest{StartOperation: "MUL", LevelAmount: 3}, teacher)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = st.progression.Place(ctx, "class-1", "student-2", dto.PlacementRequest{StartOperation: "MUL", LevelAmount: 3}, teacherClaims("teacher-9"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestProgressionOverride(t *testing.T) {
	st := newTestStack()

	transition, err := st.progression.Override(context.Background(), "class-1", "student-1",
		dto.MasteryRequest{Operation: "mul"}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	assert.True(t, transition.Promoted)

	_, err = st.progression.Override(context.Background(), "class-1", "student-1",
		dto.MasteryRequest{Operation: "nope"}, teacherClaims("teacher-1"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
