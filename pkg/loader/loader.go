// Package loader reads identifiers from a column of a CSV, TSV or XLSX table.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

const bom = "\ufeff"

// Result holds the identifiers read from the input table
type Result struct {
	MSISDNs []string
	Rows    int // data rows read, header excluded
	Blank   int // rows with an empty cell
	Skipped int // rows dropped by the digits-only filter
}

// DetectFormat picks the table format from explicit or the file extension
func DetectFormat(path string, explicit config.InputFormat) (config.InputFormat, error) {
	if explicit != "" {
		switch explicit {
		case config.FormatCSV, config.FormatTSV, config.FormatXLSX:
			return explicit, nil
		}
		return "", errors.WrapError(fmt.Errorf("unsupported format %q", explicit), errors.ErrConfiguration, "input format")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return config.FormatCSV, nil
	case ".tsv":
		return config.FormatTSV, nil
	case ".xlsx", ".xlsm":
		return config.FormatXLSX, nil
	case ".xls":
		return "", errors.WithHint(
			errors.WrapError(fmt.Errorf("legacy .xls files are not supported"), errors.ErrConfiguration, path),
			"save the sheet as .xlsx or .csv",
		)
	}
	return "", errors.WithHint(
		errors.WrapError(fmt.Errorf("unsupported file format %q", filepath.Ext(path)), errors.ErrConfiguration, path),
		"use a .csv, .tsv or .xlsx file, or set input.format",
	)
}

// Load reads the configured column from in.File
func Load(in config.Input, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	format, err := DetectFormat(in.File, in.Format)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case config.FormatXLSX:
		rows, err = readXLSX(in.File, in.Sheet)
	default:
		delim := ','
		if format == config.FormatTSV {
			delim = '\t'
		}
		if in.Delimiter != "" {
			delim, _ = utf8.DecodeRuneInString(in.Delimiter)
		}
		rows, err = readDelimitedFile(in.File, delim)
	}
	if err != nil {
		return nil, err
	}

	res, err := Extract(rows, in.MSISDNColumn, in.DigitsOnlyEnabled(), in.Limit)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInput, in.File)
	}

	if res.Skipped > 0 {
		logger.Warn("skipped non-digit values",
			zap.String("file", in.File),
			zap.String("column", in.MSISDNColumn),
			zap.Int("skipped", res.Skipped),
		)
	}
	logger.Info("loaded identifiers",
		zap.String("file", in.File),
		zap.String("format", string(format)),
		zap.Int("rows", res.Rows),
		zap.Int("msisdns", len(res.MSISDNs)),
	)
	return res, nil
}

// Extract pulls the identifiers of column out of a table whose first row is
// the header.
func Extract(rows [][]string, column string, digitsOnly bool, limit int) (*Result, error) {
	if len(rows) == 0 {
		return nil, errors.New("input table is empty")
	}

	header := make([]string, len(rows[0]))
	idx := -1
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		header[i] = strings.TrimSpace(h)
		if idx < 0 && header[i] == column {
			idx = i
		}
	}
	if idx < 0 {
		return nil, errors.WithHintf(
			errors.Newf("column %q not found", column),
			"available columns: %s", strings.Join(header, ", "),
		)
	}

	res := &Result{}
	for _, row := range rows[1:] {
		if limit > 0 && len(res.MSISDNs) >= limit {
			break
		}
		res.Rows++

		var v string
		if idx < len(row) {
			v = strings.TrimSpace(row[idx])
		}
		if v == "" {
			res.Blank++
			continue
		}
		if digitsOnly && !isDigits(v) {
			res.Skipped++
			continue
		}
		res.MSISDNs = append(res.MSISDNs, v)
	}

	if len(res.MSISDNs) == 0 {
		return nil, errors.Newf("no valid MSISDNs found in column %q", column)
	}
	return res, nil
}

func readDelimitedFile(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInput, "open input file")
	}
	defer f.Close()

	rows, err := ReadDelimited(f, delim)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInput, path)
	}
	return rows, nil
}

// ReadDelimited reads every record of a CSV/TSV stream. Ragged rows are allowed.
func ReadDelimited(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInput, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, errors.WrapError(errors.New("workbook has no sheets"), errors.ErrInput, path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.WithHintf(
			errors.WrapError(err, errors.ErrInput, fmt.Sprintf("read sheet %q", sheet)),
			"available sheets: %s", strings.Join(sheets, ", "),
		)
	}

	// data cells only; the header row is matched by name
	for i := 1; i < len(rows); i++ {
		for j, cell := range rows[i] {
			rows[i][j] = normalizeNumeric(cell)
		}
	}
	return rows, nil
}

// normalizeNumeric rewrites integral numbers that workbooks store in
// float or scientific form, such as 9.94501234567E+11 or 994501234567.0, as
// plain digits. Anything else is returned unchanged.
func normalizeNumeric(v string) string {
	if isDigits(v) || !strings.ContainsAny(v, ".eE") {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > 1<<53 {
		return v
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
