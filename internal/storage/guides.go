package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrGuideNotFound is returned when no guide exists with the requested ID.
var ErrGuideNotFound = errors.New("guide not found")

// GuideRecord is one persisted guide-generation result. History is
// append-only; it is never consulted during card resolution.
type GuideRecord struct {
	ID        int64     `json:"id"`
	Decklist  string    `json:"decklist"`
	Guide     string    `json:"guide"`
	Model     string    `json:"model"`
	CardCount int       `json:"card_count"`
	CardsJSON string    `json:"cards_json"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveGuide inserts a guide record and returns its assigned ID.
func (db *DB) SaveGuide(ctx context.Context, rec *GuideRecord) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO guides (decklist, guide, model, card_count, cards_json)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Decklist, rec.Guide, rec.Model, rec.CardCount, rec.CardsJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert guide: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get guide ID: %w", err)
	}

	return id, nil
}

// GetGuide retrieves a single guide by ID.
func (db *DB) GetGuide(ctx context.Context, id int64) (*GuideRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, decklist, guide, model, card_count, cards_json, created_at
		 FROM guides WHERE id = ?`, id)

	var rec GuideRecord
	err := row.Scan(&rec.ID, &rec.Decklist, &rec.Guide, &rec.Model,
		&rec.CardCount, &rec.CardsJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGuideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query guide %d: %w", id, err)
	}

	return &rec, nil
}

// ListGuides returns the most recent guides, newest first.
// A limit of 0 or less uses a default of 50.
func (db *DB) ListGuides(ctx context.Context, limit int) ([]*GuideRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, decklist, guide, model, card_count, cards_json, created_at
		 FROM guides ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query guides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var guides []*GuideRecord
	for rows.Next() {
		var rec GuideRecord
		if err := rows.Scan(&rec.ID, &rec.Decklist, &rec.Guide, &rec.Model,
			&rec.CardCount, &rec.CardsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guide row: %w", err)
		}
		guides = append(guides, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guide rows: %w", err)
	}

	return guides, nil
}
