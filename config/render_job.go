package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"liquidationMap/internal/heatmap"
)

// RenderJob describes an offline heatmap render (YAML).
type RenderJob struct {
	Name               string           `yaml:"name"`
	CandlesCSV         string           `yaml:"candles_csv"`
	LiquidationMapJSON string           `yaml:"liquidation_map_json"`
	OutputCSV          string           `yaml:"output_csv"`
	Options            RenderJobOptions `yaml:"options"`
}

// RenderJobOptions overrides engine defaults. Zero values keep the default.
type RenderJobOptions struct {
	PriceBins         int       `yaml:"price_bins"`
	Kernel            []float64 `yaml:"kernel"`
	RampLength        int       `yaml:"ramp_length"`
	WeightExponent    float64   `yaml:"weight_exponent"`
	IntensityExponent float64   `yaml:"intensity_exponent"`
	MinIntensity      *float64  `yaml:"min_intensity"`
	LowerPercentile   *float64  `yaml:"lower_percentile"`
	UpperPercentile   *float64  `yaml:"upper_percentile"`
	ExcludeStatuses   []string  `yaml:"exclude_statuses"`
}

// LoadRenderJob reads and validates a render job. Relative paths inside the
// file are resolved against the job file's directory.
func LoadRenderJob(path string) (*RenderJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job RenderJob
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("parsing render job %s: %w", path, err)
	}

	base := filepath.Dir(path)
	job.CandlesCSV = resolvePath(base, job.CandlesCSV)
	job.LiquidationMapJSON = resolvePath(base, job.LiquidationMapJSON)
	job.OutputCSV = resolvePath(base, job.OutputCSV)

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate checks required inputs and the resulting engine options.
func (j *RenderJob) Validate() error {
	var errs []string
	if j.CandlesCSV == "" {
		errs = append(errs, "candles_csv is required")
	}
	if j.LiquidationMapJSON == "" {
		errs = append(errs, "liquidation_map_json is required")
	}
	if _, err := j.HeatmapOptions(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New("render job validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// HeatmapOptions merges the job overrides onto the engine defaults.
func (j *RenderJob) HeatmapOptions() (heatmap.Options, error) {
	o := j.Options
	opts := heatmap.DefaultOptions()
	if o.PriceBins != 0 {
		opts.PriceBins = o.PriceBins
	}
	if len(o.Kernel) > 0 {
		opts.Kernel = append([]float64(nil), o.Kernel...)
	}
	if o.RampLength != 0 {
		opts.RampLength = o.RampLength
	}
	if o.WeightExponent != 0 {
		opts.WeightExponent = o.WeightExponent
	}
	if o.IntensityExponent != 0 {
		opts.IntensityExponent = o.IntensityExponent
	}
	if o.MinIntensity != nil {
		opts.MinIntensity = *o.MinIntensity
	}
	if o.LowerPercentile != nil {
		opts.LowerPercentile = *o.LowerPercentile
	}
	if o.UpperPercentile != nil {
		opts.UpperPercentile = *o.UpperPercentile
	}
	statuses, err := parseStatuses(strings.Join(o.ExcludeStatuses, ","))
	if err != nil {
		return heatmap.Options{}, fmt.Errorf("exclude_statuses: %w", err)
	}
	opts.ExcludeStatuses = statuses
	if err := opts.Validate(); err != nil {
		return heatmap.Options{}, err
	}
	return opts, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
