package heatmap

import (
	"encoding/json"
	"os"
	"strings"

	"crowdmap-worker-go/internal/models"
)

// Store holds the loaded region definitions. Immutable after load; updates go
// through loading a fresh Store and swapping it in.
type Store struct {
	regions []models.Region
	index   map[string]int
}

// regionDoc mirrors the region definition document. Pointer fields let
// validation tell a missing field apart from a zero value.
type regionDoc struct {
	Regions []struct {
		Name   *string  `json:"name"`
		X      *float64 `json:"x"`
		Y      *float64 `json:"y"`
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	} `json:"regions"`
}

// LoadStore parses and validates a region definition document. Duplicate
// names are a configuration error, never silently merged.
func LoadStore(document []byte) (*Store, error) {
	var doc regionDoc
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, models.NewError(models.KindInvalidRegionDefinition,
			"failed to parse region document: %v", err)
	}

	store := &Store{index: make(map[string]int, len(doc.Regions))}
	for i, r := range doc.Regions {
		if r.Name == nil || *r.Name == "" {
			return nil, models.NewError(models.KindInvalidRegionDefinition,
				"region %d is missing a name", i)
		}
		if r.X == nil || r.Y == nil || r.Width == nil || r.Height == nil {
			return nil, models.NewError(models.KindInvalidRegionDefinition,
				"region %q is missing a required geometry field", *r.Name)
		}
		if *r.X < 0 || *r.Y < 0 || *r.Width < 0 || *r.Height < 0 {
			return nil, models.NewError(models.KindInvalidRegionDefinition,
				"region %q has negative geometry", *r.Name)
		}
		if _, exists := store.index[*r.Name]; exists {
			return nil, models.NewError(models.KindInvalidRegionDefinition,
				"duplicate region name %q", *r.Name)
		}

		store.index[*r.Name] = len(store.regions)
		store.regions = append(store.regions, models.Region{
			Name:   *r.Name,
			X:      *r.X,
			Y:      *r.Y,
			Width:  *r.Width,
			Height: *r.Height,
		})
	}

	return store, nil
}

// LoadStoreFromFile reads and parses the region document at path.
func LoadStoreFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.KindInvalidRegionDefinition,
			"failed to read region document %s: %v", path, err)
	}
	return LoadStore(data)
}

// Regions returns the regions in definition order.
func (s *Store) Regions() []models.Region {
	out := make([]models.Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Has reports whether name is a known region.
func (s *Store) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// MatchFilename assigns a filename to the first region (in definition order)
// whose normalized name is a substring of the normalized filename. When a
// filename could match several region names, the first definition wins; this
// tie-break is deliberate and must not change to longest-match.
func (s *Store) MatchFilename(filename string) (models.Region, bool) {
	normalized := normalizeName(filename)
	for _, region := range s.regions {
		if strings.Contains(normalized, normalizeName(region.Name)) {
			return region, true
		}
	}
	return models.Region{}, false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}
