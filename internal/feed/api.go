package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quantlab/meanrev/internal/core"
)

// apiSuccessCode is the code field value the kline endpoint returns on
// success.
const apiSuccessCode = 1

// APIConfig holds kline endpoint settings.
type APIConfig struct {
	URL        string
	AuthHeader string // Authorization header value, optional
	Timeout    time.Duration
}

// APILoader fetches daily bars from an HTTP kline endpoint that returns
// {"code": 1, "message": "...", "data": [{day, open, high, low, close,
// volume}, ...]}.
type APILoader struct {
	cfg    APIConfig
	client *http.Client
}

// NewAPILoader creates a loader for the configured endpoint.
func NewAPILoader(cfg APIConfig) *APILoader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APILoader{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (l *APILoader) Name() string {
	return "api"
}

type klineResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    []klineBar `json:"data"`
}

type klineBar struct {
	Day    string  `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (l *APILoader) Load(ctx context.Context) ([]core.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if l.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", l.cfg.AuthHeader)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrInvalidDataFormat,
			fmt.Errorf("decoding response: %w", err))
	}
	if result.Code != apiSuccessCode {
		return nil, fmt.Errorf("kline api error: %s", result.Message)
	}

	bars := make([]core.Bar, 0, len(result.Data))
	for i, k := range result.Data {
		day, err := parseDate(k.Day)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidDataFormat,
				fmt.Errorf("record %d: %w", i, err))
		}
		bars = append(bars, core.Bar{
			Date:   day,
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		})
	}
	return bars, nil
}
