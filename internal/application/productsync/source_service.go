package productsync

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// SourceSeed is one stock data source declared in sources.yaml
type SourceSeed struct {
	Name   string                   `yaml:"name"`
	Active *bool                    `yaml:"active"`
	Kind   string                   `yaml:"kind"`
	Params productsync.SourceParams `yaml:"params"`
}

// SourceSeedFile is the layout of sources.yaml
type SourceSeedFile struct {
	Sources []SourceSeed `yaml:"sources"`
}

// ParseSourceSeeds decodes sources.yaml into validated sources
func ParseSourceSeeds(r io.Reader) ([]productsync.StockDataSource, error) {
	var file SourceSeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode source seeds: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Sources))
	out := make([]productsync.StockDataSource, 0, len(file.Sources))
	for i, seed := range file.Sources {
		kind, err := productsync.ParseSourceKind(seed.Kind)
		if err != nil {
			return nil, fmt.Errorf("source #%d: %w", i+1, err)
		}
		source := productsync.StockDataSource{
			Name:   seed.Name,
			Active: seed.Active == nil || *seed.Active,
			Kind:   kind,
			Params: seed.Params,
		}
		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("source #%d: %w", i+1, err)
		}
		if err := validateParams(source.Params); err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		if _, dup := seen[source.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate source name %q", productsync.ErrInvalidSourceParams, source.Name)
		}
		seen[source.Name] = struct{}{}
		out = append(out, source)
	}
	return out, nil
}

// SourceService manages stock data sources
type SourceService struct {
	sources productsync.StockDataSourceRepository
}

// NewSourceService creates a SourceService
func NewSourceService(sources productsync.StockDataSourceRepository) *SourceService {
	return &SourceService{sources: sources}
}

// Sync upserts every source declared in r by name
func (s *SourceService) Sync(ctx context.Context, r io.Reader) ([]productsync.StockDataSource, error) {
	seeds, err := ParseSourceSeeds(r)
	if err != nil {
		return nil, err
	}
	for i := range seeds {
		if err := s.sources.Upsert(ctx, &seeds[i]); err != nil {
			return nil, fmt.Errorf("upsert source %s: %w", seeds[i].Name, err)
		}
		logger.L(ctx).Info(fmt.Sprintf("Stock data source %s (#%d, %s) synced", seeds[i].Name, seeds[i].ID, seeds[i].Kind))
	}
	return seeds, nil
}

// List returns every source
func (s *SourceService) List(ctx context.Context) ([]productsync.StockDataSource, error) {
	return s.sources.FindAll(ctx)
}

// Active returns the sources picked up by scheduled runs
func (s *SourceService) Active(ctx context.Context) ([]productsync.StockDataSource, error) {
	return s.sources.FindActive(ctx)
}

// Get returns one source, or ErrSourceNotFound
func (s *SourceService) Get(ctx context.Context, id int64) (*productsync.StockDataSource, error) {
	return s.sources.FindByID(ctx, id)
}
