package archive

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// columns maps the snapshot schema onto header positions. The raw feed has
// used both "influenza admissions" and "influenza_admissions" over time.
type columns struct {
	date, region, fips, admissions int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{date: -1, region: -1, fips: -1, admissions: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			cols.date = i
		case "name_state":
			cols.region = i
		case "fips_state":
			cols.fips = i
		case "influenza_admissions", "influenza admissions":
			cols.admissions = i
		}
	}
	if cols.date < 0 || cols.region < 0 || cols.admissions < 0 {
		return cols, eris.Errorf("snapshot: header missing required columns, got %v", header)
	}
	return cols, nil
}

func rowsFromRecords(cols columns, records [][]string, release time.Time) (model.Snapshot, error) {
	snap := model.Snapshot{Release: release, Rows: make([]model.Row, 0, len(records))}
	for _, rec := range records {
		if cols.admissions >= len(rec) || cols.date >= len(rec) || cols.region >= len(rec) {
			return snap, eris.Errorf("snapshot: short row %v", rec)
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(rec[cols.date]))
		if err != nil {
			return snap, eris.Wrapf(err, "snapshot: parse date %q", rec[cols.date])
		}
		adm, err := strconv.ParseFloat(strings.TrimSpace(rec[cols.admissions]), 64)
		if err != nil {
			return snap, eris.Wrapf(err, "snapshot: parse admissions %q", rec[cols.admissions])
		}
		row := model.Row{
			Date:       d,
			Region:     strings.TrimSpace(rec[cols.region]),
			Admissions: adm,
		}
		if cols.fips >= 0 && cols.fips < len(rec) {
			row.FIPS = strings.TrimSpace(rec[cols.fips])
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap, nil
}

// ReadSnapshotCSV parses one snapshot table from CSV.
func ReadSnapshotCSV(r io.Reader, release time.Time) (model.Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return model.Snapshot{}, eris.Wrap(err, "snapshot: read header")
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return model.Snapshot{}, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return model.Snapshot{}, eris.Wrap(err, "snapshot: read rows")
	}
	return rowsFromRecords(cols, records, release)
}

// WriteSnapshotCSV writes a snapshot table as CSV, ordered by report date
// then region so output is reproducible.
func WriteSnapshotCSV(w io.Writer, snap model.Snapshot) error {
	rows := make([]model.Row, len(snap.Rows))
	copy(rows, snap.Rows)
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Region < rows[j].Region
	})

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "name_state", "fips_state", "influenza_admissions"}); err != nil {
		return eris.Wrap(err, "snapshot: write header")
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format(dateLayout),
			r.Region,
			r.FIPS,
			strconv.FormatFloat(r.Admissions, 'f', -1, 64),
		}
		if err := writer.Write(rec); err != nil {
			return eris.Wrap(err, "snapshot: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "snapshot: flush")
}

// WriteEstimatesCSV writes the per-region estimate table. Interval columns
// appear only when at least one estimate carries them.
func WriteEstimatesCSV(w io.Writer, ests []model.Estimate) error {
	withIntervals := false
	for _, e := range ests {
		if e.P02Interval != nil || e.P12Interval != nil {
			withIntervals = true
			break
		}
	}

	header := []string{"fips_state", "name_state", "start_backfill_window", "end_backfill_window", "p_02", "p_12"}
	if withIntervals {
		header = append(header,
			"p_02_low", "p_02_median", "p_02_high",
			"p_12_low", "p_12_median", "p_12_high",
		)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return eris.Wrap(err, "estimates: write header")
	}
	for _, e := range ests {
		rec := []string{
			e.FIPS,
			e.Region,
			e.Window.Start.Format(dateLayout),
			e.Window.End.Format(dateLayout),
			formatFraction(e.P02),
			formatFraction(e.P12),
		}
		if withIntervals {
			rec = append(rec, intervalFields(e.P02Interval)...)
			rec = append(rec, intervalFields(e.P12Interval)...)
		}
		if err := writer.Write(rec); err != nil {
			return eris.Wrap(err, "estimates: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "estimates: flush")
}

func formatFraction(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func intervalFields(iv *model.Interval) []string {
	if iv == nil {
		return []string{"", "", ""}
	}
	return []string{
		formatFraction(iv.Low),
		formatFraction(iv.Median),
		formatFraction(iv.High),
	}
}
