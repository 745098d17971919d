package steinmetz

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/RMahshie/corefit/pkg/models"
)

// Partition is an ordered, contiguous split of the frequency axis
type Partition []models.FrequencyRange

// Validate checks that the ranges are well formed and contiguous
func (p Partition) Validate() error {
	if len(p) == 0 {
		return errors.New("partition has no ranges")
	}
	for i, r := range p {
		if !r.Valid() {
			return fmt.Errorf("range %d %s is empty", i, r)
		}
		if i > 0 && p[i-1].Max != r.Min {
			return fmt.Errorf("range %d %s does not start where range %d %s ends", i, r, i-1, p[i-1])
		}
	}
	return nil
}

func (p Partition) String() string {
	parts := make([]string, len(p))
	for i, r := range p {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// defaultPartitions are the candidate splits of 1 Hz – 1 GHz
var defaultPartitions = []Partition{
	{{Min: 1, Max: 100e3}, {Min: 100e3, Max: 50e6}, {Min: 50e6, Max: 1e9}},
	{{Min: 1, Max: 150e3}, {Min: 150e3, Max: 40e6}, {Min: 40e6, Max: 1e9}},
	{{Min: 1, Max: 150e3}, {Min: 150e3, Max: 1e6}, {Min: 1e6, Max: 1e9}},
	{{Min: 1, Max: 500e3}, {Min: 500e3, Max: 1e9}},
	{{Min: 1, Max: 1e6}, {Min: 1e6, Max: 1e9}},
	{{Min: 1, Max: 3e6}, {Min: 3e6, Max: 1e9}},
	{{Min: 1, Max: 1e9}},
}

// Catalog is a fixed menu of candidate partitions
type Catalog struct {
	partitions []Partition
}

// NewCatalog validates and stores the given partitions
func NewCatalog(partitions ...Partition) (*Catalog, error) {
	if len(partitions) == 0 {
		return nil, errors.New("catalog has no partitions")
	}
	stored := make([]Partition, len(partitions))
	for i, p := range partitions {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
		stored[i] = slices.Clone(p)
	}
	return &Catalog{partitions: stored}, nil
}

// DefaultCatalog returns the built-in candidate partitions
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultPartitions...)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Candidates returns a copy of the partitions in catalog order
func (c *Catalog) Candidates() []Partition {
	out := make([]Partition, len(c.partitions))
	for i, p := range c.partitions {
		out[i] = slices.Clone(p)
	}
	return out
}

// Len returns the number of candidates
func (c *Catalog) Len() int { return len(c.partitions) }
