// Package output writes a ResultSet as a flat CSV, TSV or XLSX table.
package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/core"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// SheetName is the worksheet written to XLSX output
const SheetName = "Results"

// Column names that follow the key columns
const (
	StatusColumn = "status"
	ErrorColumn  = "error"
)

// DefaultFileName returns extracted_data_<YYYYMMDD_HHMMSS>.csv for now
func DefaultFileName(now time.Time) string {
	return fmt.Sprintf("extracted_data_%s.csv", now.Format("20060102_150405"))
}

// ResolvePath picks the output path and format. An empty path gets a
// timestamped default; an unknown extension gets .csv appended unless format
// is set explicitly.
func ResolvePath(path string, format config.InputFormat, now time.Time) (string, config.InputFormat) {
	if path == "" {
		path = DefaultFileName(now)
		if format == config.FormatTSV || format == config.FormatXLSX {
			path = strings.TrimSuffix(path, ".csv") + "." + string(format)
		}
	}
	if format != "" {
		return path, format
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return path, config.FormatCSV
	case ".tsv":
		return path, config.FormatTSV
	case ".xlsx":
		return path, config.FormatXLSX
	}
	return path + ".csv", config.FormatCSV
}

// Header returns the column names in output order
func Header(identifierColumn string, keys []string) []string {
	if identifierColumn == "" {
		identifierColumn = config.DefaultIdentifierColumn
	}
	header := make([]string, 0, len(keys)+3)
	header = append(header, identifierColumn)
	header = append(header, keys...)
	return append(header, StatusColumn, ErrorColumn)
}

// Row renders one Result. Keys absent from the row render empty.
func Row(r core.Result, keys []string) []string {
	row := make([]string, 0, len(keys)+3)
	row = append(row, r.Identifier)
	for _, k := range keys {
		f, ok := r.Field(k)
		if !ok || !f.Found {
			row = append(row, "")
			continue
		}
		row = append(row, f.Value.Text())
	}
	return append(row, string(r.Status), r.ErrorText())
}

// Write serialises rs to the configured output and returns the path written.
func Write(out config.Output, keys []string, rs core.ResultSet) (string, error) {
	path, format := ResolvePath(out.File, out.Format, time.Now())

	header := Header(out.IdentifierColumn, keys)
	rows := make([][]string, len(rs))
	for i, r := range rs {
		rows[i] = Row(r, keys)
	}

	var err error
	switch format {
	case config.FormatXLSX:
		err = writeXLSX(path, header, rows)
	case config.FormatTSV:
		err = writeDelimitedFile(path, '\t', header, rows)
	case config.FormatCSV:
		err = writeDelimitedFile(path, ',', header, rows)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return "", errors.WrapError(err, errors.ErrOutput, path)
	}
	return path, nil
}

func writeDelimitedFile(path string, delim rune, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := WriteDelimited(bw, delim, header, rows); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteDelimited writes header and rows as CSV with the given delimiter
func WriteDelimited(w io.Writer, delim rune, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// toCells keeps every value a string so identifiers keep their digits
func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
