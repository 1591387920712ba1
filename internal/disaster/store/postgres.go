package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"beacon/internal/disaster/models"
)

const disasterSchema = `
CREATE TABLE IF NOT EXISTS disasters (
	id            UUID PRIMARY KEY,
	title         TEXT NOT NULL,
	location_name TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	tags          TEXT[] NOT NULL DEFAULT '{}',
	owner_id      TEXT NOT NULL,
	lat           DOUBLE PRECISION NOT NULL DEFAULT 0,
	lon           DOUBLE PRECISION NOT NULL DEFAULT 0,
	audit_trail   JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS disasters_tags_idx ON disasters USING GIN (tags);

CREATE TABLE IF NOT EXISTS resources (
	id            UUID PRIMARY KEY,
	disaster_id   UUID,
	name          TEXT NOT NULL,
	location_name TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL DEFAULT '',
	lat           DOUBLE PRECISION NOT NULL,
	lon           DOUBLE PRECISION NOT NULL
);
`

const disasterColumns = `id, title, location_name, description, tags, owner_id, lat, lon, audit_trail, created_at`

// PostgresStore persists disasters with their audit trails in Postgres.
// Updates run inside a transaction with a row lock, so concurrent mutations
// of the same disaster serialize and trail appends are never lost.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the schema if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, disasterSchema); err != nil {
		return fmt.Errorf("init disaster schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, disaster *models.Disaster) error {
	trail, err := json.Marshal(disaster.AuditTrail)
	if err != nil {
		return fmt.Errorf("encode audit trail: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO disasters (`+disasterColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		disaster.ID, disaster.Title, disaster.LocationName, disaster.Description,
		disaster.Tags, disaster.OwnerID, disaster.Lat, disaster.Lon, trail, disaster.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert disaster: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Disaster, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+disasterColumns+` FROM disasters WHERE id = $1`, id)
	return scanDisaster(row)
}

func (s *PostgresStore) List(ctx context.Context, tag string) ([]*models.Disaster, error) {
	query := `SELECT ` + disasterColumns + ` FROM disasters ORDER BY created_at DESC`
	args := []any{}
	if tag != "" {
		query = `SELECT ` + disasterColumns + ` FROM disasters WHERE $1 = ANY(tags) ORDER BY created_at DESC`
		args = append(args, tag)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list disasters: %w", err)
	}
	defer rows.Close()

	disasters := make([]*models.Disaster, 0)
	for rows.Next() {
		disaster, err := scanDisaster(rows)
		if err != nil {
			return nil, err
		}
		disasters = append(disasters, disaster)
	}
	return disasters, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Disaster) error, mutate func(*models.Disaster)) (*models.Disaster, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+disasterColumns+` FROM disasters WHERE id = $1 FOR UPDATE`, id)
	disaster, err := scanDisaster(row)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(disaster); err != nil {
			return nil, err
		}
	}
	mutate(disaster)

	trail, err := json.Marshal(disaster.AuditTrail)
	if err != nil {
		return nil, fmt.Errorf("encode audit trail: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE disasters
		 SET title = $2, location_name = $3, description = $4, tags = $5,
		     lat = $6, lon = $7, audit_trail = $8
		 WHERE id = $1`,
		disaster.ID, disaster.Title, disaster.LocationName, disaster.Description,
		disaster.Tags, disaster.Lat, disaster.Lon, trail,
	)
	if err != nil {
		return nil, fmt.Errorf("update disaster: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return disaster, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID, audit models.AuditEvent) (*models.Disaster, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+disasterColumns+` FROM disasters WHERE id = $1 FOR UPDATE`, id)
	disaster, err := scanDisaster(row)
	if err != nil {
		return nil, err
	}
	disaster.AuditTrail = append(disaster.AuditTrail, audit)

	if _, err := tx.Exec(ctx, `DELETE FROM disasters WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete disaster: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return disaster, nil
}

func (s *PostgresStore) AddResource(ctx context.Context, resource models.Resource) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resources (id, disaster_id, name, location_name, type, lat, lon)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resource.ID, resource.DisasterID, resource.Name, resource.LocationName,
		resource.Type, resource.Lat, resource.Lon,
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

// NearbyResources filters by great-circle distance computed in SQL, which
// keeps the radius search in the database without requiring PostGIS.
func (s *PostgresStore) NearbyResources(ctx context.Context, disasterID uuid.UUID, lat, lon, radiusKm float64) ([]models.Resource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, disaster_id, name, location_name, type, lat, lon
		 FROM resources
		 WHERE (disaster_id = $1 OR disaster_id IS NULL)
		   AND 2 * 6371 * asin(sqrt(
		         power(sin(radians(lat - $2) / 2), 2) +
		         cos(radians($2)) * cos(radians(lat)) *
		         power(sin(radians(lon - $3) / 2), 2)
		       )) <= $4`,
		disasterID, lat, lon, radiusKm,
	)
	if err != nil {
		return nil, fmt.Errorf("query nearby resources: %w", err)
	}
	defer rows.Close()

	resources := make([]models.Resource, 0)
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.DisasterID, &r.Name, &r.LocationName, &r.Type, &r.Lat, &r.Lon); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func scanDisaster(row pgx.Row) (*models.Disaster, error) {
	var (
		d     models.Disaster
		trail []byte
	)
	err := row.Scan(&d.ID, &d.Title, &d.LocationName, &d.Description, &d.Tags,
		&d.OwnerID, &d.Lat, &d.Lon, &trail, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan disaster: %w", err)
	}
	if err := json.Unmarshal(trail, &d.AuditTrail); err != nil {
		return nil, fmt.Errorf("decode audit trail: %w", err)
	}
	return &d, nil
}
