package ndjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/pkg/models"
)

// MaterialRepository keeps a newline-delimited JSON catalog in memory. It is
// read from source on first use and every write flushes the whole catalog to
// sink.
type MaterialRepository struct {
	source Blob
	sink   Blob

	mu        sync.RWMutex
	loaded    bool
	materials []models.Material
}

// NewMaterialRepository creates a catalog repository. A nil sink writes back to source.
func NewMaterialRepository(source, sink Blob) *MaterialRepository {
	if sink == nil {
		sink = source
	}
	return &MaterialRepository{source: source, sink: sink}
}

var _ repository.MaterialRepository = (*MaterialRepository)(nil)

// Decode parses a catalog, one material record per line
func Decode(data []byte) ([]models.Material, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var materials []models.Material
	for {
		var material models.Material
		err := dec.Decode(&material)
		if errors.Is(err, io.EOF) {
			return materials, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(materials)+1, err)
		}
		materials = append(materials, material)
	}
}

// Encode writes one material record per line
func Encode(materials []models.Material) ([]byte, error) {
	var buf bytes.Buffer
	for _, material := range materials {
		line, err := json.Marshal(material)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal material %s: %w", material.Name(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (r *MaterialRepository) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	data, err := r.source.Read(ctx)
	if err != nil {
		return err
	}
	materials, err := Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode catalog %s: %w", r.source, err)
	}
	r.materials = materials
	r.loaded = true
	return nil
}

// List returns every material in catalog order
func (r *MaterialRepository) List(ctx context.Context) ([]models.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.materials), nil
}

// GetByName retrieves a material by name
func (r *MaterialRepository) GetByName(ctx context.Context, name string) (models.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return models.Material{}, err
	}
	if i := r.index(name); i >= 0 {
		return r.materials[i], nil
	}
	return models.Material{}, fmt.Errorf("%s: %w", name, repository.ErrMaterialNotFound)
}

// Save replaces the material of the same name, or appends it, and flushes the catalog
func (r *MaterialRepository) Save(ctx context.Context, material models.Material) error {
	return r.SaveAll(ctx, []models.Material{material})
}

// SaveAll upserts every material and flushes the catalog once
func (r *MaterialRepository) SaveAll(ctx context.Context, materials []models.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return err
	}

	updated := slices.Clone(r.materials)
	for _, material := range materials {
		if i := indexOf(updated, material.Name()); i >= 0 {
			updated[i] = material
		} else {
			updated = append(updated, material)
		}
	}

	data, err := Encode(updated)
	if err != nil {
		return err
	}
	if err := r.sink.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", r.sink, err)
	}
	r.materials = updated
	return nil
}

func (r *MaterialRepository) index(name string) int {
	return indexOf(r.materials, name)
}

func indexOf(materials []models.Material, name string) int {
	return slices.IndexFunc(materials, func(m models.Material) bool { return m.Name() == name })
}
