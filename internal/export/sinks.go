package export

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"github.com/zeebo/xxh3"

	rxio "github.com/x-stp/rxrecon/internal/io"
)

// SheetName is the worksheet rows are written to.
const SheetName = "Sheet1"

// writeJSON writes v as an indented JSON document.
func writeJSON(path string, v any) (int64, error) {
	af, err := rxio.CreateAtomic(path, 0)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(af)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		_ = af.Abort()
		return 0, errors.Wrap(err, "encode json")
	}
	if err := af.Commit(); err != nil {
		return 0, err
	}
	return af.Written(), nil
}

// writeCSV writes a header of the column union followed by one line per row.
func writeCSV(path string, rows []Row) (int64, error) {
	af, err := rxio.CreateAtomic(path, 0)
	if err != nil {
		return 0, err
	}
	cols := Columns(rows)
	w := csv.NewWriter(af)
	if err := w.Write(cols); err != nil {
		_ = af.Abort()
		return 0, errors.Wrap(err, "write csv header")
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			v, _ := r.Get(c)
			record[i] = FormatCell(v)
		}
		if err := w.Write(record); err != nil {
			_ = af.Abort()
			return 0, errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = af.Abort()
		return 0, errors.Wrap(err, "flush csv")
	}
	if err := af.Commit(); err != nil {
		return 0, err
	}
	return af.Written(), nil
}

// writeXLSX writes rows to the first worksheet of a new workbook.
func writeXLSX(path string, rows []Row) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	cols := Columns(rows)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return 0, errors.Wrap(err, "write xlsx header")
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, errors.Wrap(err, "cell name")
		}
		values := make([]any, len(cols))
		for j, c := range cols {
			v, _ := r.Get(c)
			values[j] = xlsxValue(v)
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return 0, errors.Wrapf(err, "write xlsx row %d", i+1)
		}
	}

	af, err := rxio.CreateAtomic(path, 0)
	if err != nil {
		return 0, err
	}
	if _, err := f.WriteTo(af); err != nil {
		_ = af.Abort()
		return 0, errors.Wrap(err, "write xlsx")
	}
	if err := af.Commit(); err != nil {
		return 0, err
	}
	return af.Written(), nil
}

// xlsxValue keeps numbers numeric so spreadsheets can sort them.
func xlsxValue(v any) any {
	switch x := v.(type) {
	case int, int64, uint16, uint32, uint64, float64, bool:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
	}
	return FormatCell(v)
}

// sqliteMeta describes an export run in the export_meta table.
type sqliteMeta struct {
	RunID  string
	Source string
}

// writeSQLite creates a database holding a records table with one TEXT column
// per row key, and an export_meta row describing the run.
func writeSQLite(path string, rows []Row, meta sqliteMeta) (int64, error) {
	tmp := rxio.TempPath(path)
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return 0, errors.Wrap(err, "remove stale temporary database")
	}
	if err := populateSQLite(tmp, rows, meta); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := rxio.ReplaceFile(tmp, path); err != nil {
		return 0, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "stat database")
	}
	return st.Size(), nil
}

func populateSQLite(path string, rows []Row, meta sqliteMeta) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}
	defer db.Close()

	cols := Columns(rows)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}

	schema := fmt.Sprintf(`CREATE TABLE records (%s TEXT);
CREATE TABLE export_meta (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	digest TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`, strings.Join(quoted, " TEXT, "))
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "create schema")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO records (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	digest := xxh3.New()
	args := make([]any, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				args[i] = nil
				continue
			}
			s := FormatCell(v)
			args[i] = s
			_, _ = digest.WriteString(s)
			_, _ = digest.Write([]byte{0x1f})
		}
		_, _ = digest.Write([]byte{0x1e})
		if _, err := stmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "insert record")
		}
	}
	if _, err := tx.Exec(`INSERT INTO export_meta (run_id, source, row_count, digest, created_at) VALUES (?, ?, ?, ?, ?)`,
		meta.RunID, meta.Source, len(rows), fmt.Sprintf("%x", digest.Sum64()), time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "insert export_meta")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
