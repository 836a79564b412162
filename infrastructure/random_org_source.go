package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"totopool/domain/entities"
	"totopool/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrRandomOrg is returned when RANDOM.ORG answers with a JSON-RPC error
var ErrRandomOrg = errors.New("random.org error")

// generateIntegers maps 1, 2, 3 to home win, draw and away win
var randomOrgOutcomes = map[int]entities.Outcome{
	1: entities.OutcomeWin1,
	2: entities.OutcomeDraw,
	3: entities.OutcomeWin2,
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
}

type rpcResponse struct {
	Result *struct {
		Random struct {
			Data []int `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RandomOrgSource draws match outcomes from the RANDOM.ORG JSON-RPC API
type RandomOrgSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewRandomOrgSource creates a result source bounded by timeout per call
func NewRandomOrgSource(endpoint, apiKey string, timeout time.Duration) *RandomOrgSource {
	return &RandomOrgSource{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Generate asks for n integers in [1, 3] with replacement
func (s *RandomOrgSource) Generate(ctx context.Context, n int) ([]entities.Outcome, error) {
	outcomes, err := s.generate(ctx, n)
	if err != nil {
		observability.GetMetrics().RecordResultSourceFailure("random_org")
		return nil, err
	}
	return outcomes, nil
}

func (s *RandomOrgSource) generate(ctx context.Context, n int) ([]entities.Outcome, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateIntegers",
		Params: map[string]any{
			"apiKey":      s.apiKey,
			"n":           n,
			"min":         1,
			"max":         3,
			"replacement": true,
		},
		ID: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("random.org request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("random.org returned status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode random.org response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("%w: %d %s", ErrRandomOrg, decoded.Error.Code, decoded.Error.Message)
	}
	if decoded.Result == nil {
		return nil, fmt.Errorf("%w: response has no result", ErrRandomOrg)
	}

	outcomes := make([]entities.Outcome, 0, len(decoded.Result.Random.Data))
	for _, v := range decoded.Result.Random.Data {
		outcome, ok := randomOrgOutcomes[v]
		if !ok {
			return nil, fmt.Errorf("%w: value %d out of range", ErrRandomOrg, v)
		}
		outcomes = append(outcomes, outcome)
	}

	log.WithField("count", len(outcomes)).Debug("Drew outcomes from random.org")
	return outcomes, nil
}
