package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegionsYAML []byte

// Region is one sub-region of a territory's landing page.
type Region struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	// Keywords are matched as lower-case substrings.
	Keywords []string `yaml:"keywords"`
}

// TerritoryRegions is the regional page configuration of one territory.
type TerritoryRegions struct {
	Code          string   `yaml:"code"`
	Enabled       bool     `yaml:"enabled"`
	Title         string   `yaml:"title"`
	DefaultRegion string   `yaml:"default_region"`
	Regions       []Region `yaml:"regions"`
}

// RegionOrder lists region keys in configured order.
func (t TerritoryRegions) RegionOrder() []string {
	keys := make([]string, 0, len(t.Regions))
	for _, r := range t.Regions {
		keys = append(keys, r.Key)
	}
	return keys
}

// RegionTitles maps region key to display title.
func (t TerritoryRegions) RegionTitles() map[string]string {
	titles := make(map[string]string, len(t.Regions))
	for _, r := range t.Regions {
		titles[r.Key] = r.Title
	}
	return titles
}

type regionsFile struct {
	Territories []TerritoryRegions `yaml:"territories"`
}

// RegionStore is the immutable set of territory region configurations,
// keyed by upper-case territory code.
type RegionStore struct {
	byCode map[string]TerritoryRegions
}

// Lookup returns the configuration for code (case-insensitive). Territories
// that are unknown or disabled are reported as missing.
func (s *RegionStore) Lookup(code string) (TerritoryRegions, bool) {
	if s == nil {
		return TerritoryRegions{}, false
	}
	t, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !t.Enabled {
		return TerritoryRegions{}, false
	}
	return t, true
}

// Len is the number of configured territories, enabled or not.
func (s *RegionStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byCode)
}

// LoadRegions reads the region configuration from path, or the built-in
// configuration when path is empty.
func LoadRegions(path string) (*RegionStore, error) {
	data := defaultRegionsYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read regions: %w", err)
		}
	}
	return ParseRegions(data)
}

// ParseRegions parses and validates a regions YAML document.
func ParseRegions(data []byte) (*RegionStore, error) {
	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}

	store := &RegionStore{byCode: make(map[string]TerritoryRegions, len(f.Territories))}
	for _, t := range f.Territories {
		t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
		if t.Code == "" {
			return nil, errors.New("regions: territory without code")
		}
		if _, dup := store.byCode[t.Code]; dup {
			return nil, fmt.Errorf("regions: duplicate territory %s", t.Code)
		}
		if len(t.Regions) == 0 {
			return nil, fmt.Errorf("regions: %s has no regions", t.Code)
		}

		seen := make(map[string]bool, len(t.Regions))
		regions := make([]Region, 0, len(t.Regions))
		for _, r := range t.Regions {
			if r.Key == "" {
				return nil, fmt.Errorf("regions: %s has a region without key", t.Code)
			}
			if seen[r.Key] {
				return nil, fmt.Errorf("regions: %s has duplicate region %s", t.Code, r.Key)
			}
			seen[r.Key] = true

			kws := make([]string, 0, len(r.Keywords))
			for _, kw := range r.Keywords {
				kw = strings.ToLower(kw)
				if kw == "" {
					continue
				}
				kws = append(kws, kw)
			}
			r.Keywords = kws
			regions = append(regions, r)
		}
		t.Regions = regions

		if !seen[t.DefaultRegion] {
			return nil, fmt.Errorf("regions: %s default region %q is not configured", t.Code, t.DefaultRegion)
		}
		store.byCode[t.Code] = t
	}
	return store, nil
}
