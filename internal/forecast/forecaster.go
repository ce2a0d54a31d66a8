package forecast

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

var ErrInsufficientHistory = errors.New("insufficient forecast history")

type Config struct {
	TickInterval time.Duration
	TrendWindow  int
	ErrorWindow  int
	MinHistory   int
	MaxHistory   int
}

// Forecaster keeps one aggregate load series per fleet and produces a
// short-horizon point forecast: a least-squares trend projection plus a
// seasonal offset keyed by hour-of-day and day-of-week, both updated
// incrementally per tick. Confidence comes from the mean absolute percentage
// error of recent forecasts against what actually happened.
type Forecaster struct {
	config Config

	mu       sync.Mutex
	series   []float64
	seasonal map[int]*seasonalBucket
	totalSum float64
	totalN   int
	errors   []float64
	pending  []pendingForecast
}

type seasonalBucket struct {
	sum float64
	n   int
}

type pendingForecast struct {
	target    time.Time
	projected float64
}

// Forecast is a point projection for one horizon. Trend is the per-tick
// slope it was projected along.
type Forecast struct {
	Projected  float64       `json:"projected"`
	Confidence float64       `json:"confidence"`
	Horizon    time.Duration `json:"horizon"`
	TargetTime time.Time     `json:"target_time"`
	Trend      float64       `json:"trend"`
}

func New(cfg Config) *Forecaster {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.TrendWindow == 0 {
		cfg.TrendWindow = 20
	}
	if cfg.ErrorWindow == 0 {
		cfg.ErrorWindow = 10
	}
	if cfg.MinHistory == 0 {
		cfg.MinHistory = 14
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 360
	}

	return &Forecaster{
		config:   cfg,
		seasonal: make(map[int]*seasonalBucket),
	}
}

// Observe feeds the tick's aggregate load into the series, scores any past
// forecasts whose target time has arrived, and updates the seasonal bucket
// for the current time.
func (f *Forecaster) Observe(value float64, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.series = append(f.series, value)
	if len(f.series) > f.config.MaxHistory {
		f.series = f.series[len(f.series)-f.config.MaxHistory:]
	}

	key := bucketKey(now)
	b := f.seasonal[key]
	if b == nil {
		b = &seasonalBucket{}
		f.seasonal[key] = b
	}
	b.sum += value
	b.n++
	f.totalSum += value
	f.totalN++

	f.scorePending(value, now)
}

// Forecast projects the aggregate load one horizon ahead. Below the minimum
// history it returns ErrInsufficientHistory, signaling the decision engine
// to fall back to reactive-only rules.
func (f *Forecaster) Forecast(now time.Time, horizon time.Duration) (*Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.series) < f.config.MinHistory {
		return nil, ErrInsufficientHistory
	}

	slope := f.trendSlope()
	horizonTicks := float64(horizon) / float64(f.config.TickInterval)
	target := now.Add(horizon)

	projected := f.series[len(f.series)-1] + slope*horizonTicks + f.seasonalOffset(target)
	if projected < 0 {
		projected = 0
	}

	fc := &Forecast{
		Projected:  projected,
		Confidence: f.confidence(),
		Horizon:    horizon,
		TargetTime: target,
		Trend:      slope,
	}

	f.pending = append(f.pending, pendingForecast{target: target, projected: projected})

	logger.Debugf("Forecast: projected=%.3f confidence=%.2f slope=%.4f", projected, fc.Confidence, slope)
	return fc, nil
}

// AggregateSeries collapses the per-instance snapshot to the fleet series
// value for this tick, per the policy's aggregation mode.
func AggregateSeries(snapshot map[string][]models.LoadSample, mode models.AggregationMode) float64 {
	var agg float64
	for _, window := range snapshot {
		s := window[len(window)-1]
		u := s.Utilization()
		switch mode {
		case models.AggregateMax:
			if u > agg {
				agg = u
			}
		default:
			agg += u
		}
	}
	return agg
}

func (f *Forecaster) HistoryLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.series)
}

// trendSlope is the least-squares slope over the trailing trend window,
// with tick index as the x axis.
func (f *Forecaster) trendSlope() float64 {
	window := f.series
	if len(window) > f.config.TrendWindow {
		window = window[len(window)-f.config.TrendWindow:]
	}
	n := float64(len(window))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// seasonalOffset is the target bucket's historical deviation from the
// overall mean, zero for buckets never seen.
func (f *Forecaster) seasonalOffset(target time.Time) float64 {
	b := f.seasonal[bucketKey(target)]
	if b == nil || b.n == 0 || f.totalN == 0 {
		return 0
	}
	return b.sum/float64(b.n) - f.totalSum/float64(f.totalN)
}

// confidence is 1 minus the normalized recent forecast error. With history
// present but no scored forecasts yet it starts at a neutral 0.5.
func (f *Forecaster) confidence() float64 {
	if len(f.errors) == 0 {
		return 0.5
	}
	var sum float64
	for _, e := range f.errors {
		sum += e
	}
	c := 1 - sum/float64(len(f.errors))
	if c < 0 {
		return 0
	}
	return c
}

func (f *Forecaster) scorePending(actual float64, now time.Time) {
	remaining := f.pending[:0]
	for _, p := range f.pending {
		if p.target.After(now) {
			remaining = append(remaining, p)
			continue
		}
		denom := math.Max(actual, 0.01)
		ape := math.Abs(p.projected-actual) / denom
		if ape > 1 {
			ape = 1
		}
		f.errors = append(f.errors, ape)
	}
	f.pending = remaining
	if len(f.errors) > f.config.ErrorWindow {
		f.errors = f.errors[len(f.errors)-f.config.ErrorWindow:]
	}
}

func bucketKey(t time.Time) int {
	return int(t.Weekday())*24 + t.Hour()
}
