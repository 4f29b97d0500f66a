// Package forecast projects daily temperature, rainfall and humidity for
// Irish counties five days ahead.
//
// Counties with enough daily history get a model forecast from a regression
// tree ensemble trained on lag, rolling-mean and seasonal features. Counties
// without usable history fall back to an embedded static table.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/cache"
	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

const (
	// MaxHorizon is the furthest day ahead that can be forecast.
	MaxHorizon = 5
	// MinTrainingRows is the minimum number of daily rows needed to fit a model.
	MinTrainingRows = 10
	// TempBand is the half-width of the temperature confidence band in °C.
	TempBand = 1.5
)

// Forecast sources.
const (
	SourceModel  = "model"
	SourceStatic = "static"
)

var (
	ErrInsufficientHistory = errors.New("not enough history to train a forecast model")
	ErrUnknownCounty       = errors.New("no history or static forecast for county")
	ErrInvalidDays         = fmt.Errorf("days must be between 1 and %d", MaxHorizon)
)

// Row is the forecast for one day.
type Row struct {
	Date      time.Time `json:"date"`
	Temp      float64   `json:"temp"`
	TempLower float64   `json:"tempLower"`
	TempUpper float64   `json:"tempUpper"`
	Rain      float64   `json:"rain"`
	Humidity  *float64  `json:"humidity,omitempty"`
}

// Forecast is a county forecast starting tomorrow.
type Forecast struct {
	County string `json:"county"`
	Source string `json:"source"`
	Rows   []Row  `json:"rows"`
}

// Config tunes the forecaster.
type Config struct {
	Forest ForestConfig
	// Jitter is the amplitude of uniform noise added to model predictions.
	// Zero disables it.
	Jitter float64
	// CacheTTL bounds how long fitted predictions are reused per county.
	CacheTTL time.Duration
}

// Forecaster produces county forecasts.
type Forecaster struct {
	cfg   Config
	table *StaticTable
	now   func() time.Time

	// raw horizon predictions keyed by county and the history they were fitted on
	predictions *cache.TTL[string, map[Variable][]float64]

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewForecaster(cfg Config, table *StaticTable) *Forecaster {
	return &Forecaster{
		cfg:         cfg,
		table:       table,
		now:         time.Now,
		predictions: cache.New[string, map[Variable][]float64](cfg.CacheTTL),
		rng:         rand.New(rand.NewSource(cfg.Forest.Seed)),
	}
}

// PredictCountyWeather returns min(days, 5) daily rows starting tomorrow.
// A model is trained on history when it has at least MinTrainingRows days;
// otherwise the static table entry for the county is used verbatim.
func (f *Forecaster) PredictCountyWeather(county string, history []dataset.DailyWeather, days int) (Forecast, error) {
	if days < 1 {
		return Forecast{}, ErrInvalidDays
	}
	days = clampDays(days)
	county = strings.TrimSpace(county)

	if len(history) >= MinTrainingRows {
		preds, err := f.modelPredictions(county, history)
		if err != nil {
			return Forecast{}, fmt.Errorf("forecast %s: %w", county, err)
		}
		return Forecast{County: county, Source: SourceModel, Rows: f.buildRows(preds, days)}, nil
	}

	if f.table != nil {
		if static, ok := f.table.Lookup(county, days); ok {
			if len(history) > 0 {
				slog.Debug("using static forecast, history too short", "county", county, "days", len(history))
			}
			return Forecast{County: county, Source: SourceStatic, Rows: f.staticRows(static)}, nil
		}
	}

	if len(history) > 0 {
		return Forecast{}, fmt.Errorf("forecast %s: %w (%d of %d days)", county, ErrInsufficientHistory, len(history), MinTrainingRows)
	}
	return Forecast{}, fmt.Errorf("forecast %s: %w", county, ErrUnknownCounty)
}

func (f *Forecaster) modelPredictions(county string, history []dataset.DailyWeather) (map[Variable][]float64, error) {
	last := history[len(history)-1].Date
	key := fmt.Sprintf("%s|%d|%s", strings.ToLower(county), len(history), last.Format(time.DateOnly))
	return f.predictions.GetOrLoad(key, func() (map[Variable][]float64, error) {
		start := time.Now()
		preds, err := Predict(Observations(history), f.cfg.Forest)
		if err != nil {
			return nil, err
		}
		slog.Info("forecast model fitted", "county", county, "rows", len(history), "duration", time.Since(start))
		return preds, nil
	})
}

// Predict fits one ensemble per variable on the observations and returns the
// horizon 1..5 predictions for the most recent day.
func Predict(obs []DailyObservation, cfg ForestConfig) (map[Variable][]float64, error) {
	if len(obs) < MinTrainingRows {
		return nil, fmt.Errorf("%w (%d of %d days)", ErrInsufficientHistory, len(obs), MinTrainingRows)
	}
	rows, err := Features(obs)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = r.X
	}
	latest := rows[len(rows)-1].X

	out := make(map[Variable][]float64)
	for _, v := range variablesOf(obs) {
		Y := make([][]float64, len(rows))
		for i, r := range rows {
			Y[i] = r.Targets[v]
		}
		forest := NewForest(cfg)
		if err := forest.Fit(X, Y); err != nil {
			return nil, fmt.Errorf("fit %s: %w", v, err)
		}
		pred, err := forest.Predict(latest)
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", v, err)
		}
		out[v] = pred
	}
	return out, nil
}

func (f *Forecaster) today() time.Time {
	return dataset.DateOf(f.now().UTC())
}

func (f *Forecaster) buildRows(preds map[Variable][]float64, days int) []Row {
	start := f.today()
	rows := make([]Row, days)
	for i := range rows {
		temp := preds[Temperature][i] + f.jitter()
		rain := math.Max(0, preds[Rainfall][i]+f.jitter())
		rows[i] = Row{Date: start.AddDate(0, 0, i+1), Temp: temp, Rain: rain}
		rows[i].TempLower, rows[i].TempUpper = band(temp)
		if hum, ok := preds[Humidity]; ok {
			h := math.Min(100, math.Max(0, hum[i]+f.jitter()))
			rows[i].Humidity = &h
		}
	}
	return rows
}

func (f *Forecaster) staticRows(static []StaticDay) []Row {
	start := f.today()
	rows := make([]Row, len(static))
	for i, s := range static {
		rows[i] = Row{Date: start.AddDate(0, 0, i+1), Temp: s.Temp, Rain: s.Rain}
		rows[i].TempLower, rows[i].TempUpper = band(s.Temp)
	}
	return rows
}

// band returns temp ± TempBand. The lower bound is clipped at zero only for
// non-negative temperatures so that lower <= temp always holds.
func band(temp float64) (lower, upper float64) {
	lower, upper = temp-TempBand, temp+TempBand
	if temp >= 0 && lower < 0 {
		lower = 0
	}
	return lower, upper
}

func (f *Forecaster) jitter() float64 {
	if f.cfg.Jitter <= 0 {
		return 0
	}
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return (f.rng.Float64()*2 - 1) * f.cfg.Jitter
}
