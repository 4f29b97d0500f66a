package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultHumidity is substituted when the county CSV has no humidity column.
const DefaultHumidity = 80.0

// CountyRecord is one hourly observation for an Irish county.
type CountyRecord struct {
	County   string
	Time     time.Time
	Temp     float64
	Rain     float64
	Humidity float64
	// HumidityMeasured is false when Humidity holds DefaultHumidity.
	HumidityMeasured bool
	Pressure         *float64
}

// ReadCountyCSV parses "county,date,temp,rain[,rhum|humidity][,msl]" rows.
// Rows with a blank county, date or temperature are skipped; a blank rain
// value counts as zero.
func ReadCountyCSV(r io.Reader) ([]CountyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"county", "date", "temp", "rain"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("county csv: missing %q column", required)
		}
	}
	humIdx, hasHum := cols["rhum"]
	if !hasHum {
		humIdx, hasHum = cols["humidity"]
	}
	mslIdx, hasMsl := cols["msl"]

	field := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var out []CountyRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		county := field(row, cols["county"])
		date := field(row, cols["date"])
		tempStr := field(row, cols["temp"])
		if county == "" || date == "" || tempStr == "" {
			continue
		}

		ts, err := ParseTime(date, LayoutDash, LayoutDashSeconds, LayoutSlash)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		temp, err := strconv.ParseFloat(tempStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid temp %q", line, tempStr)
		}
		rain, err := parseOptionalFloat(field(row, cols["rain"]), 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rain: %w", line, err)
		}

		rec := CountyRecord{County: county, Time: ts, Temp: temp, Rain: rain, Humidity: DefaultHumidity}
		if hasHum {
			if s := field(row, humIdx); s != "" {
				if rec.Humidity, err = strconv.ParseFloat(s, 64); err != nil {
					return nil, fmt.Errorf("line %d: invalid humidity %q", line, s)
				}
				rec.HumidityMeasured = true
			}
		}
		if hasMsl {
			if s := field(row, mslIdx); s != "" {
				p, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid msl %q", line, s)
				}
				rec.Pressure = &p
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseOptionalFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// CountyWeather indexes county observations by county name (case-insensitive).
// It is read-only after construction.
type CountyWeather struct {
	byCounty map[string][]CountyRecord
	names    map[string]string
}

// NewCountyWeather groups records per county, each ordered by time.
func NewCountyWeather(records []CountyRecord) *CountyWeather {
	cw := &CountyWeather{
		byCounty: make(map[string][]CountyRecord),
		names:    make(map[string]string),
	}
	for _, r := range records {
		key := strings.ToLower(r.County)
		cw.byCounty[key] = append(cw.byCounty[key], r)
		if _, ok := cw.names[key]; !ok {
			cw.names[key] = r.County
		}
	}
	for _, recs := range cw.byCounty {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Time.Before(recs[j].Time) })
	}
	return cw
}

// LoadCountyFile reads the county weather CSV at path.
func LoadCountyFile(path string) (*CountyWeather, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadCountyCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewCountyWeather(records), nil
}

// Counties returns the county names with observations, sorted.
func (c *CountyWeather) Counties() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Records returns the observations for county, or nil.
func (c *CountyWeather) Records(county string) []CountyRecord {
	if c == nil {
		return nil
	}
	return c.byCounty[strings.ToLower(strings.TrimSpace(county))]
}

// Daily aggregates county observations per calendar day.
func (c *CountyWeather) Daily(county string) []DailyWeather {
	return AggregateDaily(c.Records(county))
}
