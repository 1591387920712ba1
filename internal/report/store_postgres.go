package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reportSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id                  UUID PRIMARY KEY,
	disaster_id         UUID NOT NULL,
	user_id             TEXT NOT NULL,
	content             TEXT NOT NULL,
	image_url           TEXT NOT NULL DEFAULT '',
	verification_status TEXT NOT NULL DEFAULT 'pending',
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_disaster_idx ON reports (disaster_id, created_at DESC);
`

const reportColumns = `id, disaster_id, user_id, content, image_url, verification_status, created_at`

// PostgresStore persists reports in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, reportSchema); err != nil {
		return fmt.Errorf("init report schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, report *Report) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID, report.DisasterID, report.UserID, report.Content,
		report.ImageURL, report.VerificationStatus, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

func (s *PostgresStore) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]*Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE disaster_id = $1 ORDER BY created_at DESC`,
		disasterID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status VerificationStatus) (*Report, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE reports SET verification_status = $2 WHERE id = $1 RETURNING `+reportColumns,
		id, status)
	return scanReport(row)
}

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.DisasterID, &r.UserID, &r.Content, &r.ImageURL,
		&r.VerificationStatus, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &r, nil
}
