package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/corefit/pkg/models"
)

// ErrMaterialNotFound is returned when no material has the requested name
var ErrMaterialNotFound = errors.New("material not found")

// MaterialRepository defines the interface for material catalog operations
type MaterialRepository interface {
	List(ctx context.Context) ([]models.Material, error)
	GetByName(ctx context.Context, name string) (models.Material, error)
	Save(ctx context.Context, material models.Material) error
	SaveAll(ctx context.Context, materials []models.Material) error
}
