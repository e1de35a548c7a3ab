package archive

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// ReadSnapshotXLSX parses one snapshot table from the first sheet of an
// XLSX workbook. Jurisdictions occasionally ship the archive as
// spreadsheets rather than CSV; the schema is the same.
func ReadSnapshotXLSX(path string, release time.Time) (model.Snapshot, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "snapshot: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return model.Snapshot{}, eris.Errorf("snapshot: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return model.Snapshot{}, eris.Errorf("snapshot: %s sheet is empty", path)
	}

	cols, err := resolveColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return model.Snapshot{}, err
	}

	records := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if len(cells) == 0 {
			continue
		}
		records = append(records, cells)
	}
	return rowsFromRecords(cols, records, release)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
