package station

import (
	"context"
	"fmt"
	"strings"

	"github.com/askwhyharsh/nearhelp/internal/location"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/validator"
)

// Source produces the station list once at startup.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]location.Station, error)
}

// Lister is the storage side of DBSource.
type Lister interface {
	ListStations(ctx context.Context) ([]location.Station, error)
}

type sampleSource struct{}

// SampleSource serves the built-in simulated stations.
func SampleSource() Source { return sampleSource{} }

func (sampleSource) Name() string { return "sample" }

func (sampleSource) Load(context.Context) ([]location.Station, error) {
	return Sample(), nil
}

// ExcelSource reads stations from a sheet of an .xlsx workbook.
type ExcelSource struct {
	Path  string
	Sheet string
}

func (s ExcelSource) Name() string { return "xlsx:" + s.Path }

func (s ExcelSource) Load(context.Context) ([]location.Station, error) {
	return ReadExcelFile(s.Path, s.Sheet)
}

// DBSource reads stations from a database table.
type DBSource struct {
	Store Lister
}

func (s DBSource) Name() string { return "postgres" }

func (s DBSource) Load(ctx context.Context) ([]location.Station, error) {
	return s.Store.ListStations(ctx)
}

// Load builds the catalog from src and validates every record.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	stations, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations from %s: %w: %w", src.Name(), apperrors.ErrCatalogSource, err)
	}

	for i, s := range stations {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("load stations from %s: record %d: %w", src.Name(), i+1, err)
		}
	}

	return NewCatalog(stations), nil
}

var coordinates = validator.NewValidator()

func validate(s location.Station) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty name", apperrors.ErrInvalidStation)
	}
	if err := coordinates.ValidateCoordinates(s.Coordinate.Lat, s.Coordinate.Lon); err != nil {
		return fmt.Errorf("%w: %w (%v, %v)", apperrors.ErrInvalidStation, err, s.Coordinate.Lat, s.Coordinate.Lon)
	}
	return nil
}
