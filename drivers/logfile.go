package drivers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"scrollchart/store"
)

// LogProvider replays values from a wide hardware log: a header row of metric names and one
// row per sample. Each poll picks a random row. Missing files, columns or unparsable cells
// are served by the fallback instead.
type LogProvider struct {
	columns  map[string]int
	rows     [][]string
	fallback *RandomProvider
}

// NewLogProvider never fails: a log that can't be read just leaves every metric on the fallback.
func NewLogProvider(path string, fallback *RandomProvider, logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if fallback == nil {
		fallback = NewRandomProvider(nil, nil)
	}
	p := &LogProvider{columns: make(map[string]int), fallback: fallback}

	rows, err := readTable(path)
	if err != nil {
		logger.Warn("couldn't load hardware log, will generate random data", "path", path, "error", err)
		return p
	}
	if len(rows) < 2 {
		logger.Warn("hardware log has no samples, will generate random data", "path", path)
		return p
	}
	for i, name := range rows[0] {
		p.columns[store.NormaliseMetric(name)] = i
	}
	p.rows = rows[1:]
	logger.Info("loaded hardware log", "path", path, "rows", len(p.rows), "columns", len(rows[0]))
	return p
}

// Rows reports how many samples were loaded.
func (p *LogProvider) Rows() int {
	return len(p.rows)
}

func (p *LogProvider) Value(ctx context.Context, metric string) (float64, error) {
	col, ok := p.columns[store.NormaliseMetric(metric)]
	if !ok || len(p.rows) == 0 {
		return p.fallback.Value(ctx, metric)
	}
	row := p.rows[p.fallback.intn(len(p.rows))]
	if col >= len(row) {
		return p.fallback.Value(ctx, metric)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return p.fallback.Value(ctx, metric)
	}
	return value, nil
}

// readTable loads every row of a CSV file or the first sheet of an XLSX workbook.
func readTable(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no sheets", path)
		}
		return f.GetRows(sheets[0])
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}
