package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/homelibrary/homelibrary-server/internal/domain"
)

// LocationHistory returns up to limit location events for an owned book,
// newest first.
func (s *Store) LocationHistory(ctx context.Context, userID, bookID int64, limit int) ([]*domain.LocationEvent, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, user_id, location, changed_at
		FROM book_locations
		WHERE book_id = ? AND user_id = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?`, bookID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query location history: %w", err)
	}
	defer rows.Close()

	var events []*domain.LocationEvent
	for rows.Next() {
		var (
			ev        domain.LocationEvent
			changedAt sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.BookID, &ev.UserID, &ev.Location, &changedAt); err != nil {
			return nil, fmt.Errorf("scan location event: %w", err)
		}
		if ev.ChangedAt, err = parseTime(changedAt.String); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
