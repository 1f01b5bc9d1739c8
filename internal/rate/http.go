package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

const (
	pathDateLayout  = "02-01-2006"
	defaultLookback = 10
)

// HTTPProvider reads UF values from a mindicador-compatible API:
// GET {BaseURL}/uf/{dd-mm-yyyy}
type HTTPProvider struct {
	BaseURL  string
	Client   *http.Client
	Lookback int
}

type indicatorResponse struct {
	Code  string `json:"codigo"`
	Serie []struct {
		Date  time.Time   `json:"fecha"`
		Value json.Number `json:"valor"`
	} `json:"serie"`
}

// NewHTTPProvider creates a provider with its own client bounded by timeout
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: timeout},
		Lookback: defaultLookback,
	}
}

// Rate fetches the value published for date
func (p *HTTPProvider) Rate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := utils.TruncateToDay(date)
	url := fmt.Sprintf("%s/uf/%s", p.BaseURL, day.Format(pathDateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build uf request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch uf rate: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return decimal.Zero, unavailable(day)
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, fmt.Errorf("fetch uf rate: unexpected status %d", resp.StatusCode)
	}

	var body indicatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode uf response: %w", err)
	}
	if len(body.Serie) == 0 {
		return decimal.Zero, unavailable(day)
	}

	value, err := decimal.NewFromString(body.Serie[0].Value.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse uf value %q: %w", body.Serie[0].Value, err)
	}
	if !value.IsPositive() {
		return decimal.Zero, unavailable(day)
	}

	logger.Debug("Fetched UF rate", "date", day.Format(utils.DateLayout), "value", value.String())
	return value, nil
}

// LatestBefore walks back day by day, up to Lookback days, until a value is published
func (p *HTTPProvider) LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error) {
	day := utils.TruncateToDay(date)
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = defaultLookback
	}

	for i := 0; i <= lookback; i++ {
		candidate := day.AddDate(0, 0, -i)
		value, err := p.Rate(ctx, candidate)
		if err == nil {
			return value, candidate, nil
		}
		if ctx.Err() != nil {
			return decimal.Zero, time.Time{}, ctx.Err()
		}
	}
	return decimal.Zero, time.Time{}, unavailable(day)
}
