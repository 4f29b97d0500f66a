package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/common"
)

// BicycleRecord is one counter reading for one location and interval.
type BicycleRecord struct {
	Time     time.Time
	Location string
	Count    int
	Date     time.Time // Time truncated to midnight
	Hour     int
	Day      string // weekday name
	Month    string // month name
	Season   string
	Year     int
}

// ErrNoTimeColumn is returned for bicycle CSVs without a "Time" header.
var ErrNoTimeColumn = errors.New("bicycle csv has no Time column")

func newBicycleRecord(ts time.Time, location string, count int) BicycleRecord {
	return BicycleRecord{
		Time:     ts,
		Location: location,
		Count:    count,
		Date:     DateOf(ts),
		Hour:     ts.Hour(),
		Day:      ts.Weekday().String(),
		Month:    ts.Month().String(),
		Season:   Season(ts.Month()),
		Year:     ts.Year(),
	}
}

// ReadBicycleCSV reshapes a wide counter export (one Time column, one column
// per location) into long records. Direction columns containing "IN" or "OUT"
// are excluded. Blank cells count as zero, so every interval yields one record
// per location.
func ReadBicycleCSV(r io.Reader) ([]BicycleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	timeIdx := -1
	type column struct {
		idx  int
		name string
	}
	var locations []column
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(name, "Time"):
			timeIdx = i
		case name == "" || common.HasAny(name, "IN", "OUT"):
			continue
		default:
			locations = append(locations, column{idx: i, name: name})
		}
	}
	if timeIdx < 0 {
		return nil, ErrNoTimeColumn
	}

	var out []BicycleRecord
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
		if timeIdx >= len(row) || strings.TrimSpace(row[timeIdx]) == "" {
			continue
		}
		ts, err := ParseTime(row[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, col := range locations {
			count := 0
			if col.idx < len(row) {
				if count, err = parseCount(row[col.idx]); err != nil {
					return nil, fmt.Errorf("line %d column %q: %w", line, col.name, err)
				}
			}
			out = append(out, newBicycleRecord(ts, col.name, count))
		}
	}
	return out, nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Some exports write counts as floats ("12.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f), nil
}

// LoadBicycleFiles reads every file matched by the given paths or glob
// patterns and concatenates the records, ordered by time then location.
func LoadBicycleFiles(patterns []string) ([]BicycleRecord, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no bicycle csv files match %v: %w", patterns, os.ErrNotExist)
	}
	sort.Strings(files)

	var all []BicycleRecord
	for _, path := range files {
		records, err := readBicycleFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		slog.Info("bicycle csv loaded", "file", path, "records", len(records))
		all = append(all, records...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Time.Equal(all[j].Time) {
			return all[i].Time.Before(all[j].Time)
		}
		return all[i].Location < all[j].Location
	})
	return all, nil
}

// Span returns the earliest and latest record times. Both are zero when
// records is empty.
func Span(records []BicycleRecord) (from, to time.Time) {
	for i, r := range records {
		if i == 0 || r.Time.Before(from) {
			from = r.Time
		}
		if i == 0 || r.Time.After(to) {
			to = r.Time
		}
	}
	return from, to
}

func readBicycleFile(path string) ([]BicycleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBicycleCSV(f)
}
