package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/echo-agent/internal/activity"
	"github.com/ziadkadry99/echo-agent/internal/db"
)

// timestampLayout matches the strftime format of the timestamp column default.
const timestampLayout = "2006-01-02 15:04:05.000"

// Store provides persistence for transcript entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_entries (
			id, timestamp, conversation_id, channel_id, direction,
			activity_type, activity_id, from_id, text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(timestampLayout),
		entry.ConversationID,
		entry.ChannelID,
		string(entry.Direction),
		entry.ActivityType,
		entry.ActivityID,
		entry.FromID,
		entry.Text,
	)
	if err != nil {
		return fmt.Errorf("inserting transcript entry: %w", err)
	}
	return nil
}

// LogActivity records a in the given direction.
func (s *Store) LogActivity(ctx context.Context, dir Direction, a *activity.Activity) error {
	return s.Log(ctx, Entry{
		ConversationID: a.Conversation.ID,
		ChannelID:      a.ChannelID,
		Direction:      dir,
		ActivityType:   a.Type,
		ActivityID:     a.ID,
		FromID:         a.From.ID,
		Text:           a.Text,
	})
}

// Filter controls which entries are returned by Query.
type Filter struct {
	ConversationID string
	Direction      Direction
	Limit          int
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.ConversationID != "" {
		clauses = append(clauses, "conversation_id = ?")
		args = append(args, filter.ConversationID)
	}
	if filter.Direction != "" {
		clauses = append(clauses, "direction = ?")
		args = append(args, string(filter.Direction))
	}

	query := "SELECT id, timestamp, conversation_id, channel_id, direction, activity_type, activity_id, from_id, text FROM transcript_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e         Entry
		ts        string
		direction string
	)
	if err := rows.Scan(&e.ID, &ts, &e.ConversationID, &e.ChannelID, &direction,
		&e.ActivityType, &e.ActivityID, &e.FromID, &e.Text); err != nil {
		return nil, fmt.Errorf("scanning transcript entry: %w", err)
	}
	e.Direction = Direction(direction)
	if t, err := time.Parse(timestampLayout, ts); err == nil {
		e.Timestamp = t
	} else if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		e.Timestamp = t
	}
	return &e, nil
}
