package calendar

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/username/workload-planner/pkg/dateutil"
)

// DefaultHolidayCNURL is the holiday-cn mirror on jsDelivr
const DefaultHolidayCNURL = "https://cdn.jsdelivr.net/gh/NateScarlet/holiday-cn@master/{year}.json"

// HolidayCNSource reads the yearly JSON files published by the holiday-cn project
type HolidayCNSource struct {
	urlTemplate string
	httpClient  *http.Client
	logger      *zap.Logger
}

type holidayCNYear struct {
	Year int            `json:"year"`
	Days []holidayCNDay `json:"days"`
}

type holidayCNDay struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	IsOffDay bool   `json:"isOffDay"`
}

// NewHolidayCNSource creates a HolidayCNSource. urlTemplate must contain {year}.
func NewHolidayCNSource(urlTemplate string, timeout time.Duration, logger *zap.Logger) *HolidayCNSource {
	if urlTemplate == "" {
		urlTemplate = DefaultHolidayCNURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HolidayCNSource{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the source name
func (s *HolidayCNSource) Name() string {
	return "holiday-cn"
}

// FetchYear fetches all holiday facts for year
func (s *HolidayCNSource) FetchYear(ctx context.Context, year int) ([]DayFact, error) {
	url := strings.ReplaceAll(s.urlTemplate, "{year}", strconv.Itoa(year))

	s.logger.Debug("Fetching holidays from holiday-cn",
		zap.String("url", url),
		zap.Int("year", year))

	var data holidayCNYear
	if err := getJSON(ctx, s.httpClient, url, &data); err != nil {
		return nil, &SourceError{Source: s.Name(), Year: year, Err: err}
	}

	facts := make([]DayFact, 0, len(data.Days))
	for _, day := range data.Days {
		date, err := dateutil.ParseISODate(day.Date)
		if err != nil {
			s.logger.Warn("Failed to parse holiday date",
				zap.String("date", day.Date),
				zap.Error(err))
			continue
		}

		facts = append(facts, DayFact{
			Date:            date,
			IsHoliday:       day.IsOffDay,
			IsMakeupWorkday: !day.IsOffDay,
			Name:            day.Name,
			Year:            year,
		})
	}

	s.logger.Info("Holidays fetched from holiday-cn",
		zap.Int("year", year),
		zap.Int("entries", len(facts)))

	return facts, nil
}
