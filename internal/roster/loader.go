package roster

import (
	"context"
	"fmt"
	"os"

	"bistro/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for roster files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based roster loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "roster-loader").Logger(),
	}
}

// Load reads a YAML roster file.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading roster file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open roster file")
		return nil, fmt.Errorf("failed to open roster file %s: %w", filePath, err)
	}
	defer file.Close()

	drivers, err := Parse(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("invalid roster file")
		return nil, fmt.Errorf("invalid roster file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("drivers_loaded", len(drivers)).
		Msg("roster file loaded successfully")

	return drivers, nil
}
