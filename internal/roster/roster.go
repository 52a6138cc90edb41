// Package roster loads the delivery driver roster from YAML and seeds it
// into the driver store.
package roster

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bistro/internal/model"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader loads a driver roster from a source (a file path or an object key).
type Loader interface {
	Load(ctx context.Context, source string) ([]model.Driver, error)
}

// DriverUpserter is the part of the driver store the roster writes to.
type DriverUpserter interface {
	Upsert(ctx context.Context, drivers []model.Driver) error
}

type document struct {
	Drivers []model.Driver `yaml:"drivers"`
}

// Parse decodes a roster document. Entries without a status default to
// available; ids must be unique and names non-empty.
func Parse(r io.Reader) ([]model.Driver, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return []model.Driver{}, nil
		}
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Drivers))
	drivers := make([]model.Driver, 0, len(doc.Drivers))
	for i, d := range doc.Drivers {
		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)

		if d.ID == "" {
			return nil, fmt.Errorf("roster entry %d: id is required", i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("roster entry %s: name is required", d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("roster entry %s: duplicate id", d.ID)
		}
		seen[d.ID] = struct{}{}

		if d.Status == "" {
			d.Status = model.DriverStatusAvailable
		}
		if !d.Status.IsValid() {
			return nil, fmt.Errorf("roster entry %s: invalid status %q", d.ID, d.Status)
		}
		if d.Rating < 0 || d.Rating > 5 {
			return nil, fmt.Errorf("roster entry %s: rating must be between 0 and 5", d.ID)
		}

		drivers = append(drivers, d)
	}

	return drivers, nil
}

// Seed loads the roster from source and upserts it into the store.
func Seed(ctx context.Context, loader Loader, source string, store DriverUpserter, logger zerolog.Logger) (int, error) {
	drivers, err := loader.Load(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("failed to load driver roster: %w", err)
	}

	if err := store.Upsert(ctx, drivers); err != nil {
		return 0, fmt.Errorf("failed to seed driver roster: %w", err)
	}

	logger.Info().
		Str("source", source).
		Int("drivers", len(drivers)).
		Msg("driver roster seeded")

	return len(drivers), nil
}
