// Package catalog holds the static list of known cities.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

var ErrCatalogUnavailable = errors.New("city catalog unavailable")

var requiredColumns = []string{"id", "name", "lat", "lon", "tz"}

// Catalog is read-only after Load.
type Catalog struct {
	cities []models.City
	byID   map[int64]int
}

// Empty returns a catalog with no cities, used when the dataset failed to load.
func Empty() *Catalog {
	return &Catalog{byID: map[int64]int{}}
}

// Load reads the CSV dataset at path. Rows with malformed numbers are skipped.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()

	c, err := Read(f, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("City catalog loaded", zap.String("path", path), zap.Int("cities", c.Len()))
	return c, nil
}

// Read parses a CSV with a header row containing at least id,name,lat,lon,tz.
func Read(r io.Reader, logger *zap.Logger) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCatalogUnavailable, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrCatalogUnavailable, name)
		}
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	c := Empty()
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCatalogUnavailable, line, err)
		}

		id, err := strconv.ParseInt(field(row, "id"), 10, 64)
		if err != nil {
			logger.Warn("Skipping catalog row with bad id", zap.Int("line", line), zap.Error(err))
			continue
		}
		lat, errLat := strconv.ParseFloat(field(row, "lat"), 64)
		lon, errLon := strconv.ParseFloat(field(row, "lon"), 64)
		if errLat != nil || errLon != nil {
			logger.Warn("Skipping catalog row with bad coordinates", zap.Int("line", line), zap.Int64("id", id))
			continue
		}
		if _, dup := c.byID[id]; dup {
			logger.Warn("Skipping duplicate catalog id", zap.Int("line", line), zap.Int64("id", id))
			continue
		}
		tz := field(row, "tz")
		if tz == "" {
			tz = "UTC"
		}

		c.byID[id] = len(c.cities)
		c.cities = append(c.cities, models.City{
			ID:      id,
			Name:    field(row, "name"),
			Country: field(row, "country"),
			Lat:     lat,
			Lon:     lon,
			TZ:      tz,
		})
	}

	if len(c.cities) == 0 {
		return nil, fmt.Errorf("%w: no cities in dataset", ErrCatalogUnavailable)
	}
	return c, nil
}

// All returns the cities in dataset order. The slice is a copy.
func (c *Catalog) All() []models.City {
	out := make([]models.City, len(c.cities))
	copy(out, c.cities)
	return out
}

func (c *Catalog) ByID(id int64) (models.City, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.City{}, false
	}
	return c.cities[i], true
}

// ByNames returns the first city matching each name, case-insensitively, in
// the order of names. Unknown names are skipped.
func (c *Catalog) ByNames(names ...string) []models.City {
	out := make([]models.City, 0, len(names))
	seen := make(map[int64]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		for _, city := range c.cities {
			if !strings.EqualFold(city.Name, n) {
				continue
			}
			if _, dup := seen[city.ID]; !dup {
				seen[city.ID] = struct{}{}
				out = append(out, city)
			}
			break
		}
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.cities)
}
