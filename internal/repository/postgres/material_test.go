package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/pkg/models"
)

// setupDatabase starts a PostgreSQL container and returns a migrated connection
func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("corefit_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return db
}

func sampleMaterial(name string, k float64) models.Material {
	return models.NewMaterial(name,
		models.MeasurementsLossEntry([]models.VolumetricLossPoint{
			models.NewVolumetricLossPoint(models.MeasurementPoint{
				Frequency: 1e5, FluxDensityPeak: 0.1, Temperature: 25, LossDensity: 5e4, Origin: models.OriginManufacturer,
			}),
		}),
		models.MethodLossEntry(models.MethodEntry{
			Name:   models.SteinmetzMethod,
			Ranges: []models.CoefficientSet{{K: k, Alpha: 1.4, Beta: 2.5, Ct0: 1, MinimumFrequency: 1, MaximumFrequency: 1e9}},
		}),
	)
}

func TestPostgresMaterialRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupDatabase(t)
	repo := NewPostgresMaterialRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, []models.Material{sampleMaterial("N87", 1), sampleMaterial("3C90", 2)}))

	materials, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, materials, 2)
	assert.Equal(t, "N87", materials[0].Name())
	assert.Equal(t, "3C90", materials[1].Name())

	// upsert keeps a single row per name
	require.NoError(t, repo.Save(ctx, sampleMaterial("N87", 7)))

	got, err := repo.GetByName(ctx, "N87")
	require.NoError(t, err)
	method, ok := got.SteinmetzMethod()
	require.True(t, ok)
	assert.Equal(t, 7.0, method.Ranges[0].K)
	assert.Len(t, got.Measurements(), 1)

	materials, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, materials, 2)

	_, err = repo.GetByName(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrMaterialNotFound)
}
