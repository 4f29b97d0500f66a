package forecast

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed counties.yaml
var countiesYAML []byte

// County is a known Irish county with map coordinates.
type County struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`

	Static staticSeries `yaml:"forecast" json:"-"`
}

type staticSeries struct {
	Temp []float64 `yaml:"temp"`
	Rain []float64 `yaml:"rain"`
}

// StaticDay is one precomputed fallback value.
type StaticDay struct {
	Temp float64
	Rain float64
}

// StaticTable is the embedded per-county fallback forecast.
type StaticTable struct {
	counties []County
	byName   map[string]County
}

// LoadStaticTable parses the embedded county table.
func LoadStaticTable() (*StaticTable, error) {
	return parseStaticTable(countiesYAML)
}

func parseStaticTable(data []byte) (*StaticTable, error) {
	var doc struct {
		Counties []County `yaml:"counties"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse county table: %w", err)
	}

	t := &StaticTable{byName: make(map[string]County, len(doc.Counties))}
	for _, c := range doc.Counties {
		if n := len(c.Static.Temp); n != 0 && (n != MaxHorizon || len(c.Static.Rain) != MaxHorizon) {
			return nil, fmt.Errorf("county %s: static forecast needs %d temp and rain values", c.Name, MaxHorizon)
		}
		t.counties = append(t.counties, c)
		t.byName[strings.ToLower(c.Name)] = c
	}
	sort.Slice(t.counties, func(i, j int) bool { return t.counties[i].Name < t.counties[j].Name })
	return t, nil
}

// Counties returns every county in the table, sorted by name.
func (t *StaticTable) Counties() []County {
	out := make([]County, len(t.counties))
	copy(out, t.counties)
	return out
}

// County looks up a county by name, case-insensitively.
func (t *StaticTable) County(name string) (County, bool) {
	c, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Lookup returns the first min(days, 5) precomputed values for county, unmodified.
func (t *StaticTable) Lookup(county string, days int) ([]StaticDay, bool) {
	c, ok := t.County(county)
	if !ok || len(c.Static.Temp) == 0 {
		return nil, false
	}
	days = clampDays(days)
	out := make([]StaticDay, days)
	for i := 0; i < days; i++ {
		out[i] = StaticDay{Temp: c.Static.Temp[i], Rain: c.Static.Rain[i]}
	}
	return out, true
}

func clampDays(days int) int {
	if days > MaxHorizon {
		return MaxHorizon
	}
	if days < 1 {
		return 1
	}
	return days
}
