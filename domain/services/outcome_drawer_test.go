package services

import (
	"context"
	"errors"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidOutcomes(t *testing.T, outcomes []entities.Outcome, n int) {
	t.Helper()
	require.Len(t, outcomes, n)
	for _, o := range outcomes {
		assert.Contains(t, entities.AllOutcomes, o)
	}
}

func TestOutcomeDrawer_Draw(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(*testhelpers.MockResultSource)
		expected   []entities.Outcome
	}{
		{
			name: "uses result source",
			setupMocks: func(source *testhelpers.MockResultSource) {
				source.On("Generate", ctx, 3).Return([]entities.Outcome{
					entities.OutcomeWin2, entities.OutcomeDraw, entities.OutcomeWin1,
				}, nil)
			},
			expected: []entities.Outcome{entities.OutcomeWin2, entities.OutcomeDraw, entities.OutcomeWin1},
		},
		{
			name: "falls back on source error",
			setupMocks: func(source *testhelpers.MockResultSource) {
				source.On("Generate", ctx, 3).Return(nil, errors.New("timeout"))
			},
		},
		{
			name: "falls back on wrong count",
			setupMocks: func(source *testhelpers.MockResultSource) {
				source.On("Generate", ctx, 3).Return([]entities.Outcome{entities.OutcomeWin1}, nil)
			},
		},
		{
			name: "falls back on invalid symbol",
			setupMocks: func(source *testhelpers.MockResultSource) {
				source.On("Generate", ctx, 3).Return([]entities.Outcome{"1", "7", "2"}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			source := new(testhelpers.MockResultSource)
			tt.setupMocks(source)
			drawer := NewOutcomeDrawer(source, nil)

			outcomes := drawer.Draw(ctx, 3)

			assertValidOutcomes(t, outcomes, 3)
			if tt.expected != nil {
				assert.Equal(t, tt.expected, outcomes)
			}
			source.AssertExpectations(t)
		})
	}
}

func TestOutcomeDrawer_ForcedOutcome(t *testing.T) {
	t.Parallel()

	source := new(testhelpers.MockResultSource)
	forced := entities.OutcomeWin1
	drawer := NewOutcomeDrawer(source, &forced)

	outcomes := drawer.Draw(context.Background(), 10)

	require.Len(t, outcomes, 10)
	for _, o := range outcomes {
		assert.Equal(t, entities.OutcomeWin1, o)
	}
	source.AssertNotCalled(t, "Generate")
}

func TestOutcomeDrawer_LocalOnly(t *testing.T) {
	t.Parallel()

	drawer := NewOutcomeDrawer(nil, nil)

	assertValidOutcomes(t, drawer.Draw(context.Background(), 10), 10)
	assert.Empty(t, drawer.Draw(context.Background(), 0))
}

func TestDrawLocal_CoversEveryOutcome(t *testing.T) {
	t.Parallel()

	seen := make(map[entities.Outcome]int)
	for _, o := range drawLocal(3000) {
		seen[o]++
	}

	// each outcome has probability 1/3; 700 is far below the mean of 1000
	for _, o := range entities.AllOutcomes {
		assert.Greater(t, seen[o], 700, "outcome %s", o)
	}
}
