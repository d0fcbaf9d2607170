package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"civreg/internal/location"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Postgres persists the location tree. Upserts keep the
// administrative_areas denormalization in step inside one transaction, so
// readers of either table always agree.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Upsert inserts or updates one location and its administrative_areas
// membership atomically.
func (s *Postgres) Upsert(ctx context.Context, loc location.Location) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin location upsert: %w", err)
	}
	defer tx.Rollback()

	var parentID any
	if loc.ParentID != nil {
		parentID = uuid.UUID(*loc.ParentID)
	}
	var validUntil any
	if loc.ValidUntil != nil {
		validUntil = *loc.ValidUntil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO locations (id, name, location_type, parent_id, valid_until, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location_type = EXCLUDED.location_type,
			parent_id = EXCLUDED.parent_id,
			valid_until = EXCLUDED.valid_until,
			updated_at = now()`,
		uuid.UUID(loc.ID), loc.Name, string(loc.Type), parentID, validUntil,
	)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}

	if loc.Type == location.TypeAdminStructure {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO administrative_areas (location_id)
			VALUES ($1)
			ON CONFLICT (location_id) DO NOTHING`,
			uuid.UUID(loc.ID),
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM administrative_areas WHERE location_id = $1`,
			uuid.UUID(loc.ID),
		)
	}
	if err != nil {
		return fmt.Errorf("sync administrative areas: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit location upsert: %w", err)
	}
	return nil
}

// Get returns one location by id.
func (s *Postgres) Get(ctx context.Context, locationID id.LocationID) (*location.Location, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, location_type, parent_id, valid_until
		FROM locations
		WHERE id = $1`,
		uuid.UUID(locationID),
	)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

// List returns the full location set ordered by name.
func (s *Postgres) List(ctx context.Context) ([]location.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location_type, parent_id, valid_until
		FROM locations
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []location.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		out = append(out, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*location.Location, error) {
	var (
		locID      uuid.UUID
		name       string
		locType    string
		parentID   uuid.NullUUID
		validUntil sql.NullTime
	)
	if err := row.Scan(&locID, &name, &locType, &parentID, &validUntil); err != nil {
		return nil, err
	}

	loc := &location.Location{
		ID:   id.LocationID(locID),
		Name: name,
		Type: location.Type(locType),
	}
	if parentID.Valid {
		parent := id.LocationID(parentID.UUID)
		loc.ParentID = &parent
	}
	if validUntil.Valid {
		t := validUntil.Time.UTC()
		loc.ValidUntil = &t
	}
	return loc, nil
}
