package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/heatmap"
)

var candleHeader = []string{"time", "open_time", "open", "high", "low", "close", "volume"}

// WriteCandlesToCSV writes candles with a header row. The time column holds unix
// seconds; open_time repeats it as RFC3339 for readability.
func WriteCandlesToCSV(candles []domain.Candle, filename string) (err error) {
	w, closeFn, err := create(filename)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeFn()) }()

	if err := w.Write(candleHeader); err != nil {
		return err
	}
	for _, c := range candles {
		if err := w.Write([]string{
			strconv.FormatInt(c.Time, 10),
			c.OpenTime().Format(time.RFC3339),
			fmtFloat(c.Open),
			fmtFloat(c.High),
			fmtFloat(c.Low),
			fmtFloat(c.Close),
			fmtFloat(c.Volume),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCandlesFromCSV reads a file written by WriteCandlesToCSV. Columns are matched
// by header name; open_time and volume are optional.
func ReadCandlesFromCSV(filename string) ([]domain.Candle, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", filename, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", filename, col)
		}
	}

	var candles []domain.Candle
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		c, err := parseCandle(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseCandle(rec []string, idx map[string]int) (domain.Candle, error) {
	var c domain.Candle
	var err error
	if c.Time, err = strconv.ParseInt(rec[idx["time"]], 10, 64); err != nil {
		return c, fmt.Errorf("time: %w", err)
	}
	fields := []struct {
		col string
		dst *float64
	}{
		{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}, {"volume", &c.Volume},
	}
	for _, f := range fields {
		i, ok := idx[f.col]
		if !ok {
			continue
		}
		if *f.dst, err = strconv.ParseFloat(rec[i], 64); err != nil {
			return c, fmt.Errorf("%s: %w", f.col, err)
		}
	}
	return c, nil
}

// WriteCellsToCSV writes heatmap cells. times maps a cell's time index to the
// candle time (unix seconds); indices outside it leave the column empty.
func WriteCellsToCSV(cells []heatmap.Cell, times []int64, filename string) (err error) {
	w, closeFn, err := create(filename)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeFn()) }()

	if err := w.Write([]string{"time_index", "time", "price_low", "price_high", "intensity"}); err != nil {
		return err
	}
	for _, c := range cells {
		ts := ""
		if c.TimeIndex >= 0 && c.TimeIndex < len(times) {
			ts = strconv.FormatInt(times[c.TimeIndex], 10)
		}
		if err := w.Write([]string{
			strconv.Itoa(c.TimeIndex),
			ts,
			fmtFloat(c.PriceLow),
			fmtFloat(c.PriceHigh),
			strconv.FormatFloat(c.Intensity, 'f', 6, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// openFile is swapped in tests to simulate failing writes.
var openFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// create opens filename for writing. The returned close func reports errors
// from closing the file, where delayed write failures surface.
func create(filename string) (*csv.Writer, func() error, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
	}
	f, err := openFile(filename)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), f.Close, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
