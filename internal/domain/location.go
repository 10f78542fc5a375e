package domain

import "time"

// LocationEvent records that a book was moved to Location. Events are only
// ever appended.
type LocationEvent struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	UserID    int64     `json:"user_id"`
	Location  string    `json:"location"`
	ChangedAt time.Time `json:"changed_at"`
}

// HistoryLimit caps the number of events returned for one book.
const HistoryLimit = 50
