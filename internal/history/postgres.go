package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"modchat/internal/metrics"
	"modchat/internal/models"
)

// PostgresStore is the durable history store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings, and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            room_id TEXT NOT NULL,
            sender TEXT NOT NULL DEFAULT '',
            body TEXT NOT NULL DEFAULT '',
            image_link TEXT NOT NULL DEFAULT '',
            moderation_label TEXT,
            moderation_score DOUBLE PRECISION,
            ts BIGINT NOT NULL DEFAULT (floor(extract(epoch FROM clock_timestamp()) * 1000))::bigint
        )`,

		`CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages (room_id, ts, id)`,
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RoomExists reports whether any message exists for roomID.
func (s *PostgresStore) RoomExists(ctx context.Context, roomID string) (bool, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE room_id = $1)`, roomID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return exists, nil
}

// CreateRoom seeds the room with a single system message. The insert is a
// single conditional statement so the existence check and the write land
// together; two exactly concurrent calls can still both pass the NOT EXISTS
// filter under read committed, which leaves at most a duplicate seed and is
// an accepted outcome.
func (s *PostgresStore) CreateRoom(ctx context.Context, roomID string) (*models.Message, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	msg := &models.Message{RoomID: roomID, Body: models.SeedBody}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (room_id, body)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM messages WHERE room_id = $1)
		RETURNING id, ts
	`, roomID, models.SeedBody).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomExists
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return msg, nil
}

// Append writes a message and returns it with the store-assigned ID and
// timestamp.
func (s *PostgresStore) Append(ctx context.Context, msg *models.Message) (*models.Message, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	var label *string
	var score *float64
	if msg.Moderation != nil {
		label = &msg.Moderation.Label
		score = &msg.Moderation.Score
	}

	stored := *msg
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (room_id, sender, body, image_link, moderation_label, moderation_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ts
	`, msg.RoomID, msg.Sender, msg.Body, msg.ImageLink, label, score).Scan(&stored.ID, &stored.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &stored, nil
}

// ListOrdered returns the room's full history in timestamp order.
func (s *PostgresStore) ListOrdered(ctx context.Context, roomID string) ([]*models.Message, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender, body, image_link, moderation_label, moderation_score, ts
		FROM messages
		WHERE room_id = $1
		ORDER BY ts ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg := &models.Message{}
		var label *string
		var score *float64
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Sender, &msg.Body,
			&msg.ImageLink, &label, &score, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if label != nil && score != nil {
			msg.Moderation = &models.Prediction{Label: *label, Score: *score}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return messages, nil
}
