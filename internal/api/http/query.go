package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/common"
)

// cityQuery identifies a city by name, optionally "City, Country".
type cityQuery struct {
	City string `validate:"required,max=100"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location cityQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseCityQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// forecastQuery holds the county forecast parameters.
type forecastQuery struct {
	County string `validate:"required"`
	Days   int    `validate:"required,min=1,max=5"`
}

// bind reads the county from the route or query and days from the query.
// Missing days fall back to def; zero def makes days mandatory.
func (f *forecastQuery) bind(c *fiber.Ctx, def int) error {
	f.County = strings.TrimSpace(c.Params("county", c.Query("county")))
	f.Days = def
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("days must be an integer between 1 and 5")
		}
		f.Days = days
	}
	return validate.Struct(f)
}

// filterQuery holds the bicycle filter parameters. Lists accept both
// comma-separated values and repeated keys.
type filterQuery struct {
	Years     []int `validate:"dive,min=1900,max=2100"`
	Locations []string
	Seasons   []string
	Day       string
	Period    string `validate:"omitempty,oneof=morning midday afternoon evening night"`
}

func (q *filterQuery) bind(c *fiber.Ctx) error {
	for _, y := range queryList(c, "years") {
		year, err := strconv.Atoi(y)
		if err != nil {
			return errors.New("years must be a comma-separated list of integers")
		}
		q.Years = append(q.Years, year)
	}
	q.Locations = queryList(c, "locations")
	q.Seasons = queryList(c, "seasons")
	// reports cache the filter, so it must not alias the request
	q.Day = strings.Clone(strings.TrimSpace(c.Query("day")))
	q.Period = strings.Clone(strings.ToLower(strings.TrimSpace(c.Query("period"))))
	if err := validate.Struct(q); err != nil {
		return err
	}
	return q.filter().Validate()
}

func (q *filterQuery) filter() analysis.Filter {
	return analysis.Filter{
		Years:     q.Years,
		Locations: q.Locations,
		Seasons:   q.Seasons,
		Day:       q.Day,
		Period:    q.Period,
	}
}

func parseFilter(c *fiber.Ctx) (analysis.Filter, error) {
	var q filterQuery
	if err := q.bind(c); err != nil {
		return analysis.Filter{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q.filter(), nil
}

func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, common.SplitList(string(v))...)
	}
	return out
}
