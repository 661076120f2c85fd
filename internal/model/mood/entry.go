package mood

import "time"

// Entry is one mood log. Timestamp is the client-supplied string and is what
// the today/week views group on; CreatedAt is stamped by the server.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"mood_emoji"`
	Score     int       `json:"mood_score"`
	Note      string    `json:"note,omitempty"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// DaySummary aggregates the entries of one calendar date.
type DaySummary struct {
	Date         string   `json:"date"`
	AverageScore float64  `json:"average_score"`
	Entries      int      `json:"entries"`
	Moods        []string `json:"moods"`
}

// Stats summarises the window returned by the week view.
type Stats struct {
	WeeklyAverage float64 `json:"weekly_average"`
	TotalEntries  int     `json:"total_entries"`
	BestDay       string  `json:"best_day"`
	WorstDay      string  `json:"worst_day"`
}

// WeekReport is the week view payload.
type WeekReport struct {
	Moods      []Entry      `json:"moods"`
	WeekData   []DaySummary `json:"week_data"`
	Statistics Stats        `json:"statistics"`
}
