package chat

import "time"

// dateBucketLayout names the per-day bucket used when no explicit session is given.
const dateBucketLayout = "2006-01-02"

// Session is an explicit conversation issued by POST /chat/session.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DateBucket returns the calendar-date session key for t in t's location.
// A conversation that spans midnight lands in two buckets.
func DateBucket(t time.Time) string {
	return t.Format(dateBucketLayout)
}

// IsDateBucket reports whether id is a calendar-date key rather than an issued session id.
func IsDateBucket(id string) bool {
	_, err := time.Parse(dateBucketLayout, id)
	return err == nil
}
