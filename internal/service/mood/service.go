// Package mood logs mood entries and builds the today/week views.
package mood

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/mood"
)

// RecentLimit bounds every read: today and week only ever look at the latest entries.
const RecentLimit = 50

// NoDay marks best/worst day when there are no entries.
const NoDay = "N/A"

const dateLayout = "2006-01-02"

var ErrInvalidTimestamp = errors.New("timestamp must start with a YYYY-MM-DD date")

// Store is the mood slice of the persistence layer.
type Store interface {
	AddMood(ctx context.Context, e mood.Entry) error
	RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error)
}

// LogRequest is the body of POST /mood/log.
type LogRequest struct {
	UserID    string  `json:"user_id" validate:"required,max=128"`
	MoodEmoji string  `json:"mood_emoji" validate:"required,max=16"`
	MoodScore int     `json:"mood_score" validate:"min=1,max=10"`
	Note      *string `json:"note" validate:"omitempty,max=1000"`
	Timestamp string  `json:"timestamp" validate:"required,max=64"`
}

// Service implements the mood endpoints.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger, now: time.Now}
}

// Log stores the entry with the client timestamp.
func (s *Service) Log(ctx context.Context, req LogRequest) (mood.Entry, error) {
	if _, err := time.Parse(dateLayout, datePart(req.Timestamp)); err != nil {
		return mood.Entry{}, ErrInvalidTimestamp
	}

	entry := mood.Entry{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Emoji:     req.MoodEmoji,
		Score:     req.MoodScore,
		Timestamp: req.Timestamp,
		CreatedAt: s.now().UTC(),
	}
	if req.Note != nil {
		entry.Note = *req.Note
	}

	if err := s.store.AddMood(ctx, entry); err != nil {
		return mood.Entry{}, fmt.Errorf("save mood: %w", err)
	}
	s.logger.Info("mood logged", zap.String("user_id", req.UserID), zap.Int("score", req.MoodScore))
	return entry, nil
}

// Today returns recent entries whose timestamp string starts with today's local date.
// Entries stamped in another zone near midnight can land on the wrong day.
func (s *Service) Today(ctx context.Context, userID string) ([]mood.Entry, error) {
	entries, err := s.store.RecentMoods(ctx, userID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("load moods: %w", err)
	}

	today := s.now().Format(dateLayout)
	out := make([]mood.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Timestamp, today) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Week returns the recent entries plus per-day aggregates and summary statistics.
func (s *Service) Week(ctx context.Context, userID string) (mood.WeekReport, error) {
	entries, err := s.store.RecentMoods(ctx, userID, RecentLimit)
	if err != nil {
		return mood.WeekReport{}, fmt.Errorf("load moods: %w", err)
	}
	if entries == nil {
		entries = []mood.Entry{}
	}

	days, stats := Summarize(entries)
	return mood.WeekReport{Moods: entries, WeekData: days, Statistics: stats}, nil
}

// Summarize groups entries by the date before "T" in ascending date order.
// Best and worst day go to the first date holding the max or min average.
func Summarize(entries []mood.Entry) ([]mood.DaySummary, mood.Stats) {
	type bucket struct {
		sum    int
		count  int
		emojis []string
	}

	grouped := make(map[string]*bucket)
	for _, e := range entries {
		date := datePart(e.Timestamp)
		b, ok := grouped[date]
		if !ok {
			b = &bucket{}
			grouped[date] = b
		}
		b.sum += e.Score
		b.count++
		b.emojis = append(b.emojis, e.Emoji)
	}

	dates := make([]string, 0, len(grouped))
	for date := range grouped {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]mood.DaySummary, 0, len(dates))
	totalScore, totalEntries := 0, 0
	for _, date := range dates {
		b := grouped[date]
		days = append(days, mood.DaySummary{
			Date:         date,
			AverageScore: round1(float64(b.sum) / float64(b.count)),
			Entries:      b.count,
			Moods:        b.emojis,
		})
		totalScore += b.sum
		totalEntries += b.count
	}

	stats := mood.Stats{TotalEntries: totalEntries, BestDay: NoDay, WorstDay: NoDay}
	if totalEntries > 0 {
		stats.WeeklyAverage = round1(float64(totalScore) / float64(totalEntries))
	}
	if len(days) > 0 {
		best, worst := days[0], days[0]
		for _, d := range days[1:] {
			if d.AverageScore > best.AverageScore {
				best = d
			}
			if d.AverageScore < worst.AverageScore {
				worst = d
			}
		}
		stats.BestDay = best.Date
		stats.WorstDay = worst.Date
	}
	return days, stats
}

func datePart(ts string) string {
	date, _, _ := strings.Cut(ts, "T")
	return date
}

// round1 rounds the exact binary value to one decimal, ties to even.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
