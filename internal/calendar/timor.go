package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/username/workload-planner/pkg/dateutil"
)

const (
	// DefaultTimorURL is the timor.tech yearly holiday endpoint
	DefaultTimorURL    = "https://timor.tech/api/holiday/year/{year}"
	defaultHTTPTimeout = 10 * time.Second
)

// TimorSource fetches Chinese public holidays and makeup workdays from timor.tech
type TimorSource struct {
	urlTemplate string
	httpClient  *http.Client
	logger      *zap.Logger
}

// timorResponse represents the yearly API response
type timorResponse struct {
	Code    int                   `json:"code"`
	Holiday map[string]timorEntry `json:"holiday"` // key: "MM-DD"
}

type timorEntry struct {
	Holiday bool   `json:"holiday"` // true = day off, false = makeup workday
	Name    string `json:"name"`
	Date    string `json:"date"` // YYYY-MM-DD
}

// NewTimorSource creates a TimorSource. urlTemplate must contain {year}.
func NewTimorSource(urlTemplate string, timeout time.Duration, logger *zap.Logger) *TimorSource {
	if urlTemplate == "" {
		urlTemplate = DefaultTimorURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &TimorSource{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the source name
func (s *TimorSource) Name() string {
	return "timor"
}

// FetchYear fetches all holiday facts for year
func (s *TimorSource) FetchYear(ctx context.Context, year int) ([]DayFact, error) {
	url := strings.ReplaceAll(s.urlTemplate, "{year}", strconv.Itoa(year))

	s.logger.Debug("Fetching holidays from timor",
		zap.String("url", url),
		zap.Int("year", year))

	var apiResp timorResponse
	if err := getJSON(ctx, s.httpClient, url, &apiResp); err != nil {
		return nil, &SourceError{Source: s.Name(), Year: year, Err: err}
	}

	if apiResp.Code != 0 {
		return nil, &SourceError{
			Source: s.Name(),
			Year:   year,
			Err:    fmt.Errorf("API returned error code %d", apiResp.Code),
		}
	}

	facts := make([]DayFact, 0, len(apiResp.Holiday))
	for key, entry := range apiResp.Holiday {
		dateStr := entry.Date
		if dateStr == "" {
			dateStr = fmt.Sprintf("%d-%s", year, key)
		}

		date, err := dateutil.ParseISODate(dateStr)
		if err != nil {
			s.logger.Warn("Failed to parse holiday date",
				zap.String("key", key),
				zap.String("date", entry.Date),
				zap.Error(err))
			continue
		}

		facts = append(facts, DayFact{
			Date:            date,
			IsHoliday:       entry.Holiday,
			IsMakeupWorkday: !entry.Holiday,
			Name:            entry.Name,
			Year:            year,
		})
	}

	s.logger.Info("Holidays fetched from timor",
		zap.Int("year", year),
		zap.Int("entries", len(facts)))

	return facts, nil
}

// getJSON performs a GET request and decodes a JSON body, failing on non-2xx statuses
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch holiday data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}

	return nil
}
