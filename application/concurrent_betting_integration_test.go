package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"totopool/application"
	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/infrastructure"
	"totopool/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBettingService_ConcurrentCoupons(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	betting := application.NewBettingService(factory, engineConfig(time.Minute), nil)

	seeded := testutil.CreateTestRound(t, testDB.DB, entities.RoundStatusSelection, 2)
	single := entities.Selection{
		seeded.MatchIDs[0]: {entities.OutcomeWin1},
		seeded.MatchIDs[1]: {entities.OutcomeWin1},
	}
	double := entities.Selection{
		seeded.MatchIDs[0]: {entities.OutcomeWin1, entities.OutcomeDraw},
		seeded.MatchIDs[1]: {entities.OutcomeWin2},
	}

	// the shared user can afford 5 of its 12 one-unit coupons
	const sharedAttempts = 12
	shared := testutil.CreateTestUser(t, testDB.DB, "shared", "5.00")

	// every solo user can afford exactly one two-variant coupon
	soloUsers := make([]int64, 8)
	for i := range soloUsers {
		soloUsers[i] = testutil.CreateTestUser(t, testDB.DB, fmt.Sprintf("solo%d", i), "2.00")
	}

	requests := make([]interfaces.PlaceCouponRequest, 0, sharedAttempts+len(soloUsers))
	for i := 0; i < sharedAttempts; i++ {
		requests = append(requests, interfaces.PlaceCouponRequest{
			UserID: shared, RoundID: seeded.Round.ID, Selection: single, Stake: decimal.RequireFromString("1.00"),
		})
	}
	for _, userID := range soloUsers {
		requests = append(requests, interfaces.PlaceCouponRequest{
			UserID: userID, RoundID: seeded.Round.ID, Selection: double, Stake: decimal.RequireFromString("1.00"),
		})
	}

	var (
		mu           sync.Mutex
		successes    = make(map[int64]int)
		unexpected   []error
		insufficient int
		wg           sync.WaitGroup
	)
	start := make(chan struct{})
	for _, req := range requests {
		wg.Add(1)
		go func(req interfaces.PlaceCouponRequest) {
			defer wg.Done()
			<-start

			_, err := betting.PlaceCoupon(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes[req.UserID]++
			case errors.Is(err, entities.ErrInsufficientFunds):
				insufficient++
			default:
				unexpected = append(unexpected, err)
			}
		}(req)
	}
	close(start)
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 5, successes[shared])
	assert.Equal(t, sharedAttempts-5, insufficient)
	for _, userID := range soloUsers {
		assert.Equal(t, 1, successes[userID], "user %d", userID)
	}

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByID(ctx, seeded.Round.ID)
	require.NoError(t, err)
	coupons, err := uow.CouponRepository().GetByRound(ctx, seeded.Round.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 5+len(soloUsers))

	total := decimal.Zero
	for _, c := range coupons {
		total = total.Add(c.AmountTotal)
	}
	assert.Equal(t, "21.00", total.StringFixed(2))
	assert.Equal(t, total.StringFixed(2), round.LivePool.StringFixed(2))

	for _, userID := range append([]int64{shared}, soloUsers...) {
		user, err := uow.UserRepository().GetByID(ctx, userID)
		require.NoError(t, err)
		assert.False(t, user.Balance.IsNegative(), "user %d", userID)
		assert.True(t, user.Balance.IsZero(), "user %d has %s left", userID, user.Balance.StringFixed(2))
	}
}
