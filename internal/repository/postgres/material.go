package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/pkg/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS core_materials (
		name       TEXT PRIMARY KEY,
		document   JSONB NOT NULL,
		position   SERIAL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Migrate creates the materials table if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create core_materials table: %w", err)
	}
	return nil
}

// PostgresMaterialRepository implements MaterialRepository for PostgreSQL
type PostgresMaterialRepository struct {
	db *sql.DB
}

// NewPostgresMaterialRepository creates a new PostgreSQL material repository
func NewPostgresMaterialRepository(db *sql.DB) repository.MaterialRepository {
	return &PostgresMaterialRepository{db: db}
}

// List returns every material in insertion order
func (r *PostgresMaterialRepository) List(ctx context.Context) ([]models.Material, error) {
	query := `
		SELECT document
		FROM core_materials
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var material models.Material
		if err := json.Unmarshal(document, &material); err != nil {
			return nil, fmt.Errorf("failed to unmarshal material document: %w", err)
		}
		materials = append(materials, material)
	}

	return materials, rows.Err()
}

// GetByName retrieves a material by name
func (r *PostgresMaterialRepository) GetByName(ctx context.Context, name string) (models.Material, error) {
	query := `
		SELECT document
		FROM core_materials
		WHERE name = $1`

	var document []byte
	err := r.db.QueryRowContext(ctx, query, name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Material{}, fmt.Errorf("%s: %w", name, repository.ErrMaterialNotFound)
	}
	if err != nil {
		return models.Material{}, err
	}

	var material models.Material
	if err := json.Unmarshal(document, &material); err != nil {
		return models.Material{}, fmt.Errorf("failed to unmarshal material %s: %w", name, err)
	}
	return material, nil
}

// Save inserts a material or replaces the stored document of the same name
func (r *PostgresMaterialRepository) Save(ctx context.Context, material models.Material) error {
	return save(ctx, r.db, material)
}

// SaveAll stores every material in one transaction
func (r *PostgresMaterialRepository) SaveAll(ctx context.Context, materials []models.Material) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, material := range materials {
		if err := save(ctx, tx, material); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func save(ctx context.Context, db execer, material models.Material) error {
	document, err := json.Marshal(material)
	if err != nil {
		return fmt.Errorf("failed to marshal material %s: %w", material.Name(), err)
	}

	query := `
		INSERT INTO core_materials (name, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, updated_at = NOW()`

	if _, err := db.ExecContext(ctx, query, material.Name(), string(document)); err != nil {
		return fmt.Errorf("failed to save material %s: %w", material.Name(), err)
	}
	return nil
}
