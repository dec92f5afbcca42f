package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"persona-engine/internal/storage"
)

// Export writes assignment history as CSV and/or a persona distribution
// chart as PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	if opts.MaxRows <= 0 {
		opts.MaxRows = a.Config.Export.MaxRows
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.AddDate(-1, 0, 0)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	assignments, err := store.ListAssignmentsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		a.Logger.Info().Msg("no assignments found for export window")
		return nil
	}
	if len(assignments) > opts.MaxRows {
		assignments = assignments[:opts.MaxRows]
	}

	a.Logger.Info().Int("rows", len(assignments)).Msg("exporting assignments")

	if opts.CSVPath != "" {
		if err := writeAssignmentsCSV(opts.CSVPath, assignments); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeDistributionPNG(opts.PNGPath, assignments); err != nil {
			return err
		}
	}

	return nil
}

func writeAssignmentsCSV(path string, assignments []storage.AssignmentRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"user_id", "reference_date", "persona_id", "priority_rank", "resolution_reason", "matched_count", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range assignments {
		row := []string{
			rec.UserID,
			rec.ReferenceDate.UTC().Format("2006-01-02"),
			rec.PersonaID,
			strconv.Itoa(rec.PriorityRank),
			rec.ResolutionReason,
			strconv.Itoa(rec.MatchedCount),
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeDistributionPNG(path string, assignments []storage.AssignmentRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, rec := range assignments {
		counts[rec.PersonaID]++
	}

	personas := make([]string, 0, len(counts))
	for id := range counts {
		personas = append(personas, id)
	}
	sort.Strings(personas)

	bars := make([]chart.Value, 0, len(personas))
	for _, id := range personas {
		bars = append(bars, chart.Value{
			Label: id,
			Value: float64(counts[id]),
		})
	}

	graph := chart.BarChart{
		Title:    "Persona distribution",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

