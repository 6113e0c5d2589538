package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"core/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CallLogRepository records concluded calls for offline analysis. It is an
// optional collaborator: the voice flow works identically without it.
type CallLogRepository struct {
	db *sqlx.DB
}

// NewCallLogRepository connects to PostgreSQL and verifies the connection.
func NewCallLogRepository(dsn string, maxConn, maxIdleConn int) (*CallLogRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &CallLogRepository{db: db}, nil
}

// Close closes the database connection
func (r *CallLogRepository) Close() error {
	return r.db.Close()
}

// LogCall records a concluded call: the final criteria, the listings that
// were offered, and how many turns the conversation took. Safe to call on a
// nil repository.
func (r *CallLogRepository) LogCall(ctx context.Context, callID string, criteria model.SearchCriteria, listingIDs []int64, turns int) error {
	if r == nil {
		return nil
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
		INSERT INTO call_logs (call_id, criteria, matched_listing_ids, turn_count)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.db.ExecContext(ctx, query, callID, criteriaJSON, pq.Array(listingIDs), turns)
	if err != nil {
		return fmt.Errorf("failed to log call: %w", err)
	}
	return nil
}

// LogCallStatus records a telephony status callback for a call.
func (r *CallLogRepository) LogCallStatus(ctx context.Context, callID, status string) error {
	if r == nil {
		return nil
	}

	query := `
		UPDATE call_logs
		SET call_status = $2
		WHERE call_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, callID, status)
	if err != nil {
		return fmt.Errorf("failed to log call status: %w", err)
	}
	return nil
}
