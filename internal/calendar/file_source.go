package calendar

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/username/workload-planner/pkg/dateutil"
)

// FileSource reads holiday facts from a local text file
//
// Format, one fact per line:
//
//	YYYY-MM-DD holiday|workday [name]
//
// Example:
//
//	2025-10-01 holiday National Day
//	2025-09-28 workday National Day makeup
type FileSource struct {
	filePath string
	logger   *zap.Logger
}

// NewFileSource creates a new FileSource instance
func NewFileSource(filePath string, logger *zap.Logger) *FileSource {
	return &FileSource{
		filePath: filePath,
		logger:   logger,
	}
}

// Name returns the source name
func (fs *FileSource) Name() string {
	return "file"
}

// FetchYear returns the facts of year found in the file
func (fs *FileSource) FetchYear(ctx context.Context, year int) ([]DayFact, error) {
	all, err := fs.load()
	if err != nil {
		return nil, &SourceError{Source: fs.Name(), Year: year, Err: err}
	}

	facts := make([]DayFact, 0)
	for _, f := range all {
		if f.Year == year {
			facts = append(facts, f)
		}
	}

	fs.logger.Info("Holidays loaded from file",
		zap.String("file", fs.filePath),
		zap.Int("year", year),
		zap.Int("entries", len(facts)))

	return facts, nil
}

func (fs *FileSource) load() ([]DayFact, error) {
	file, err := os.Open(fs.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer file.Close()

	var facts []DayFact
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			fs.logger.Warn("Invalid line format", zap.String("line", line))
			continue
		}

		date, err := dateutil.ParseISODate(parts[0])
		if err != nil {
			fs.logger.Warn("Failed to parse date", zap.String("date", parts[0]), zap.Error(err))
			continue
		}

		fact := DayFact{
			Date: date,
			Name: strings.Join(parts[2:], " "),
			Year: date.Year(),
		}
		switch strings.ToLower(parts[1]) {
		case "holiday":
			fact.IsHoliday = true
		case "workday":
			fact.IsMakeupWorkday = true
		default:
			fs.logger.Warn("Unknown day type", zap.String("type", parts[1]))
			continue
		}

		facts = append(facts, fact)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading calendar file: %w", err)
	}

	return facts, nil
}
