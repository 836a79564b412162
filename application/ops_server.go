package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker is a dependency the ops server pings on /health
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// LivePoolReader serves round pools, loading from the store on a miss
type LivePoolReader interface {
	GetLivePool(ctx context.Context, roundID int64, load func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, error)
}

// OpsServer exposes health, metrics and read-only round data over HTTP, plus
// coupon placement for callers that sit in front of the engine
type OpsServer struct {
	uowFactory UnitOfWorkFactory
	betting    *BettingService
	pools      LivePoolReader
	checks     map[string]HealthChecker
	server     *http.Server
	now        func() time.Time
}

// NewOpsServer creates the ops server. pools may be nil to always read the
// pool from the database.
func NewOpsServer(
	addr string,
	uowFactory UnitOfWorkFactory,
	betting *BettingService,
	pools LivePoolReader,
	checks map[string]HealthChecker,
) *OpsServer {
	s := &OpsServer{
		uowFactory: uowFactory,
		betting:    betting,
		pools:      pools,
		checks:     checks,
		now:        time.Now,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(s.Router(), "ops"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router builds the HTTP routes
func (s *OpsServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(observability.HTTPMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", observability.Handler())

	r.Route("/rounds", func(r chi.Router) {
		r.Get("/", s.handleListRounds)
		r.Get("/current", s.handleCurrentRound)
		r.Get("/current/pool", s.handleCurrentPool)
		r.Get("/{roundID}/stats", s.handleRoundStats)
	})

	r.Route("/stats", func(r chi.Router) {
		r.Get("/biggest-win", s.handleBiggestWin)
		r.Get("/top-wins", s.handleTopWins)
		r.Get("/jackpot", s.handleJackpot)
	})
	r.Get("/categories", s.handleCategories)

	r.Post("/users", s.handleRegisterUser)
	r.Post("/coupons", s.handlePlaceCoupon)
	r.Post("/users/{userID}/unseen-win/claim", s.handleClaimUnseenWin)
	r.Get("/users/{userID}/rounds/{roundID}/summary", s.handleUserRoundSummary)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *OpsServer) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.server.Addr).Info("Ops server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down ops server...")
	return s.server.Shutdown(shutdownCtx)
}

// couponRequest is the body of POST /coupons
type couponRequest struct {
	UserID    int64              `json:"user_id"`
	RoundID   int64              `json:"round_id"`
	Stake     decimal.Decimal    `json:"stake"`
	Selection entities.Selection `json:"selection"`
}

// registerRequest is the body of POST /users
type registerRequest struct {
	Username string `json:"username"`
}

type couponResponse struct {
	CouponID         int64           `json:"coupon_id"`
	NumVariants      int             `json:"num_variants"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	LivePool         decimal.Decimal `json:"live_pool"`
}

type roundResponse struct {
	Round   *entities.Round   `json:"round"`
	Matches []*entities.Match `json:"matches,omitempty"`
}

type poolResponse struct {
	RoundID  int64           `json:"round_id"`
	LivePool decimal.Decimal `json:"live_pool"`
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range s.checks {
		if err := check.Ping(r.Context()); err != nil {
			log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	writeJSON(w, code, status)
}

func (s *OpsServer) handleListRounds(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var rounds []*entities.Round
	err = s.read(r.Context(), func(stats interfaces.StatsService) error {
		rounds, err = stats.ListFinishedRounds(r.Context(), limit)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *OpsServer) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	var overview *interfaces.RoundOverview
	err := s.read(r.Context(), func(stats interfaces.StatsService) error {
		var err error
		overview, err = stats.GetCurrentRound(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if overview == nil {
		writeError(w, http.StatusNotFound, entities.ErrRoundNotFound)
		return
	}
	writeJSON(w, http.StatusOK, roundResponse{Round: overview.Round, Matches: overview.Matches})
}

func (s *OpsServer) handleCurrentPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var current *entities.Round
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		current, err = uow.RoundRepository().GetCurrent(ctx)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, entities.ErrRoundNotFound)
		return
	}

	load := func(ctx context.Context) (decimal.Decimal, error) {
		var pool decimal.Decimal
		err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
			round, err := uow.RoundRepository().GetByID(ctx, current.ID)
			if err != nil {
				return err
			}
			if round == nil {
				return entities.ErrRoundNotFound
			}
			pool = round.LivePool
			return nil
		})
		return pool, err
	}

	var pool decimal.Decimal
	if s.pools != nil {
		pool, err = s.pools.GetLivePool(ctx, current.ID, load)
	} else {
		pool, err = load(ctx)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{RoundID: current.ID, LivePool: pool})
}

func (s *OpsServer) handleRoundStats(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathInt64(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var stats *entities.RoundStats
	err = s.read(r.Context(), func(svc interfaces.StatsService) error {
		stats, err = svc.GetRoundStats(r.Context(), roundID)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, errors.New("round has no statistics yet"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *OpsServer) handleBiggestWin(w http.ResponseWriter, r *http.Request) {
	var record *entities.BiggestWin
	err := s.read(r.Context(), func(stats interfaces.StatsService) error {
		var err error
		record, err = stats.GetBiggestWin(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *OpsServer) handleTopWins(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var wins []*entities.WinRecord
	err = s.read(r.Context(), func(stats interfaces.StatsService) error {
		wins, err = stats.TopWins(r.Context(), s.now(), limit)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wins)
}

func (s *OpsServer) handleJackpot(w http.ResponseWriter, r *http.Request) {
	var jackpot *entities.Jackpot
	err := s.read(r.Context(), func(stats interfaces.StatsService) error {
		var err error
		jackpot, err = stats.GetJackpot(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jackpot)
}

func (s *OpsServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	var categories []*entities.PayoutCategory
	err := s.read(r.Context(), func(stats interfaces.StatsService) error {
		var err error
		categories, err = stats.GetActiveCategories(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *OpsServer) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.betting.RegisterUser(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *OpsServer) handlePlaceCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.betting.PlaceCoupon(r.Context(), interfaces.PlaceCouponRequest{
		UserID:    req.UserID,
		RoundID:   req.RoundID,
		Selection: req.Selection,
		Stake:     req.Stake,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, couponResponse{
		CouponID:         result.Coupon.ID,
		NumVariants:      result.NumVariants,
		TotalAmount:      result.TotalAmount,
		RemainingBalance: result.RemainingBalance,
		LivePool:         result.LivePool,
	})
}

func (s *OpsServer) handleClaimUnseenWin(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	coupon, err := s.betting.ClaimUnseenWin(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coupon)
}

func (s *OpsServer) handleUserRoundSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	roundID, err := pathInt64(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var summary *entities.UserRoundSummary
	err = s.read(r.Context(), func(stats interfaces.StatsService) error {
		summary, err = stats.GetUserRoundSummary(r.Context(), userID, roundID)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// read runs a stats query in its own unit of work
func (s *OpsServer) read(ctx context.Context, fn func(stats interfaces.StatsService) error) error {
	return withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		return fn(newStatsService(uow))
	})
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return value, nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return value, nil
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, entities.ErrRoundNotFound),
		errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrNoUnseenWin):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrIncompleteSelection),
		errors.Is(err, entities.ErrUnknownMatch),
		errors.Is(err, entities.ErrInvalidOutcome),
		errors.Is(err, entities.ErrInvalidStake),
		errors.Is(err, entities.ErrNoCombinations),
		errors.Is(err, entities.ErrTooManyVariants),
		errors.Is(err, entities.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrRoundNotAcceptingBets),
		errors.Is(err, entities.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).Error("Ops request failed")
		writeError(w, code, errors.New("internal error"))
		return
	}
	writeError(w, code, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
