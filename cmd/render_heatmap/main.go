// Command render_heatmap renders a heatmap offline from a YAML job that points
// at a candles CSV and a saved liquidation map JSON, and writes the cells as CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"liquidationMap/config"
	"liquidationMap/internal/heatmap"
	"liquidationMap/internal/utils"
)

func main() {
	jobPath := flag.String("job", "render_job.yaml", "Path to the render job YAML")
	flag.Parse()

	job, err := config.LoadRenderJob(*jobPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load render job: %v", err)
	}

	res, err := runJob(job)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	fmt.Fprintln(os.Stdout, summary(job, res))
	if !res.Renderable {
		os.Exit(2)
	}
}

// runJob renders the job and writes the cells CSV when there is something to draw
// and an output path is set.
func runJob(job *config.RenderJob) (heatmap.Result, error) {
	opts, err := job.HeatmapOptions()
	if err != nil {
		return heatmap.Result{}, err
	}
	candles, err := utils.ReadCandlesFromCSV(job.CandlesCSV)
	if err != nil {
		return heatmap.Result{}, fmt.Errorf("reading candles: %w", err)
	}
	m, err := utils.LoadLiquidationMapJSON(job.LiquidationMapJSON)
	if err != nil {
		return heatmap.Result{}, fmt.Errorf("reading liquidation map: %w", err)
	}

	res := heatmap.Build(candles, m.Events(), opts)
	if !res.Renderable || job.OutputCSV == "" {
		return res, nil
	}
	if err := utils.WriteCellsToCSV(res.Cells, res.Times, job.OutputCSV); err != nil {
		return res, fmt.Errorf("writing cells: %w", err)
	}
	return res, nil
}

func summary(job *config.RenderJob, res heatmap.Result) string {
	name := job.Name
	if name == "" {
		name = job.CandlesCSV
	}
	if !res.Renderable {
		return fmt.Sprintf("%s: nothing to draw (%s)", name, res.Reason)
	}
	from, to := time.Unix(res.Times[0], 0).UTC(), time.Unix(res.Times[len(res.Times)-1], 0).UTC()
	return fmt.Sprintf("%s: %d cells, %d x %d grid, price %.2f..%.2f, %s..%s, %d/%d events rasterized -> %s",
		name, len(res.Cells), res.PriceBins, res.TimeBins, res.PriceRange.Min, res.PriceRange.Max,
		from.Format(time.RFC3339), to.Format(time.RFC3339), res.Stats.Rasterized, res.Stats.Considered, job.OutputCSV)
}
