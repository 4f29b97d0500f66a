package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

// Variable is a forecast target.
type Variable string

const (
	Temperature Variable = "temp"
	Rainfall    Variable = "rain"
	Humidity    Variable = "humidity"
)

var (
	lagOffsets     = []int{1, 2, 3, 7}
	rollingWindows = []int{3, 7}
)

// DailyObservation is the model input for one day. Humidity is nil when the
// source had no humidity measurements.
type DailyObservation struct {
	Date     time.Time
	Temp     float64
	Rain     float64
	Humidity *float64
}

// FeatureRow is one training example: predictors X and, per variable, the
// observed values for horizons 1..MaxHorizon.
type FeatureRow struct {
	Date    time.Time
	X       []float64
	Targets map[Variable][]float64
}

// Observations converts daily aggregates into model input: temperature mean,
// rainfall sum and humidity mean (only when measured on every day).
func Observations(days []dataset.DailyWeather) []DailyObservation {
	measured := len(days) > 0
	for _, d := range days {
		if !d.HumidityMeasured {
			measured = false
			break
		}
	}
	out := make([]DailyObservation, len(days))
	for i, d := range days {
		out[i] = DailyObservation{Date: d.Date, Temp: d.TempMean, Rain: d.Precipitation}
		if measured {
			h := d.Humidity
			out[i].Humidity = &h
		}
	}
	return out
}

// variablesOf lists the variables present in every observation.
func variablesOf(days []DailyObservation) []Variable {
	vars := []Variable{Temperature, Rainfall}
	for _, d := range days {
		if d.Humidity == nil {
			return vars
		}
	}
	return append(vars, Humidity)
}

func seriesOf(days []DailyObservation, v Variable) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		switch v {
		case Temperature:
			out[i] = d.Temp
		case Rainfall:
			out[i] = d.Rain
		case Humidity:
			out[i] = *d.Humidity
		}
	}
	return out
}

// FeatureNames describes the columns of FeatureRow.X for the given variables.
func FeatureNames(vars []Variable) []string {
	names := []string{"month", "day_of_year", "month_sin", "month_cos", "doy_sin", "doy_cos"}
	for _, v := range vars {
		names = append(names, string(v))
		for _, lag := range lagOffsets {
			names = append(names, fmt.Sprintf("%s_lag_%d", v, lag))
		}
		for _, w := range rollingWindows {
			names = append(names, fmt.Sprintf("%s_rolling_%d", v, w))
		}
	}
	return names
}

// Features builds one row per day, ordered by date. Lags and rolling means
// that reach before the first day are back-filled, and targets past the
// last day are forward-filled, so no row is dropped. The filled values are
// not real observations and do leak into training.
func Features(days []DailyObservation) ([]FeatureRow, error) {
	if len(days) == 0 {
		return nil, errors.New("no observations")
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Date.After(days[i-1].Date) {
			return nil, fmt.Errorf("observations not strictly ordered at %s", days[i].Date.Format(time.DateOnly))
		}
	}

	n := len(days)
	vars := variablesOf(days)

	// Column-major construction so fills run per column.
	var columns [][]float64
	month := make([]float64, n)
	doy := make([]float64, n)
	for i, d := range days {
		month[i] = float64(d.Date.Month())
		doy[i] = float64(d.Date.YearDay())
	}
	columns = append(columns, month, doy,
		mapf(month, func(m float64) float64 { return math.Sin(2 * math.Pi * m / 12) }),
		mapf(month, func(m float64) float64 { return math.Cos(2 * math.Pi * m / 12) }),
		mapf(doy, func(d float64) float64 { return math.Sin(2 * math.Pi * d / 365.25) }),
		mapf(doy, func(d float64) float64 { return math.Cos(2 * math.Pi * d / 365.25) }),
	)

	targets := make(map[Variable][][]float64, len(vars))
	for _, v := range vars {
		series := seriesOf(days, v)
		columns = append(columns, series)
		for _, lag := range lagOffsets {
			columns = append(columns, fill(shift(series, lag)))
		}
		for _, w := range rollingWindows {
			columns = append(columns, fill(rollingMean(series, w)))
		}
		horizons := make([][]float64, MaxHorizon)
		for h := 1; h <= MaxHorizon; h++ {
			horizons[h-1] = fill(shift(series, -h))
		}
		targets[v] = horizons
	}

	rows := make([]FeatureRow, n)
	for i := range rows {
		x := make([]float64, len(columns))
		for j, col := range columns {
			x[j] = col[i]
		}
		t := make(map[Variable][]float64, len(vars))
		for _, v := range vars {
			y := make([]float64, MaxHorizon)
			for h := range y {
				y[h] = targets[v][h][i]
			}
			t[v] = y
		}
		rows[i] = FeatureRow{Date: days[i].Date, X: x, Targets: t}
	}
	return rows, nil
}

func mapf(in []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// shift moves values k places later (k > 0, a lag) or earlier (k < 0, a
// lead). Vacated slots are NaN.
func shift(series []float64, k int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		j := i - k
		if j < 0 || j >= len(series) {
			out[i] = math.NaN()
			continue
		}
		out[i] = series[j]
	}
	return out
}

// rollingMean is the trailing mean over w values including the current one,
// NaN until w values are available.
func rollingMean(series []float64, w int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		if i+1 < w {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(series[i+1-w:i+1], nil)
	}
	return out
}

// fill back-fills NaNs from the next valid value, then forward-fills any
// remaining NaNs from the previous valid value.
func fill(col []float64) []float64 {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
		} else {
			next = col[i]
		}
	}
	prev := math.NaN()
	for i := range col {
		if math.IsNaN(col[i]) {
			col[i] = prev
		} else {
			prev = col[i]
		}
	}
	return col
}
