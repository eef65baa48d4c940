package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func boolPtr(b bool) *bool { return &b }

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "in.csv", "\ufeffmsisdn,name\n 994501234567 ,ann\n,blank\n+994500000000,plus\nabc,letters\n994551112233,bob\n")

	obs, logs := observer.New(zapcore.WarnLevel)
	res, err := Load(config.Input{File: path, MSISDNColumn: "msisdn"}, zap.New(obs))
	require.NoError(t, err)

	assert.Equal(t, []string{"994501234567", "994551112233"}, res.MSISDNs)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 1, res.Blank)
	assert.Equal(t, 2, res.Skipped)

	warns := logs.FilterMessage("skipped non-digit values").All()
	require.Len(t, warns, 1)
	assert.Equal(t, int64(2), warns[0].ContextMap()["skipped"])
}

func TestLoad_DigitsOnlyDisabled(t *testing.T) {
	path := writeFile(t, "in.csv", "msisdn\n+994500000000\n994501234567\n")

	res, err := Load(config.Input{File: path, MSISDNColumn: "msisdn", DigitsOnly: boolPtr(false)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"+994500000000", "994501234567"}, res.MSISDNs)
	assert.Zero(t, res.Skipped)
}

func TestLoad_CSVKeepsValuesAsWritten(t *testing.T) {
	path := writeFile(t, "in.csv", "msisdn\n994501234567.0\n9.94551112233E+11\n994501234567\n")

	res, err := Load(config.Input{File: path, MSISDNColumn: "msisdn", DigitsOnly: boolPtr(false)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"994501234567.0", "9.94551112233E+11", "994501234567"}, res.MSISDNs)

	res, err = Load(config.Input{File: path, MSISDNColumn: "msisdn"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"994501234567"}, res.MSISDNs)
	assert.Equal(t, 2, res.Skipped)
}

func TestLoad_MissingColumnHasHint(t *testing.T) {
	path := writeFile(t, "in.csv", "number,name\n1,a\n")

	_, err := Load(config.Input{File: path, MSISDNColumn: "msisdn"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInput))
	assert.Contains(t, err.Error(), `column "msisdn" not found`)
	assert.Contains(t, errors.FlattenHints(err), "available columns: number, name")
}

func TestLoad_NoValidIdentifiers(t *testing.T) {
	path := writeFile(t, "in.csv", "msisdn\nabc\n\n  \n")

	_, err := Load(config.Input{File: path, MSISDNColumn: "msisdn"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid MSISDNs found")
}

func TestLoad_TSVAndDelimiter(t *testing.T) {
	tsv := writeFile(t, "in.tsv", "name\tmsisdn\nann\t111\n")
	res, err := Load(config.Input{File: tsv, MSISDNColumn: "msisdn"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"111"}, res.MSISDNs)

	semi := writeFile(t, "in.csv", "name;msisdn\nann;222\nbob\n")
	res, err = Load(config.Input{File: semi, MSISDNColumn: "msisdn", Delimiter: ";"}, nil)
	require.NoError(t, err, "short rows count as blank")
	assert.Equal(t, []string{"222"}, res.MSISDNs)
	assert.Equal(t, 1, res.Blank)
}

func TestLoad_Limit(t *testing.T) {
	path := writeFile(t, "in.csv", "msisdn\n1\n2\n3\n4\n")

	res, err := Load(config.Input{File: path, MSISDNColumn: "msisdn", Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.MSISDNs)
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Numbers"))
	require.NoError(t, f.SetSheetRow("Numbers", "A1", &[]interface{}{"name", "MSISDN"}))
	require.NoError(t, f.SetSheetRow("Numbers", "A2", &[]interface{}{"ann", 994501234567}))
	require.NoError(t, f.SetSheetRow("Numbers", "A3", &[]interface{}{"bob", "9.94551112233E+11"}))
	require.NoError(t, f.SetSheetRow("Numbers", "A4", &[]interface{}{"eve", "n/a"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := Load(config.Input{File: path, MSISDNColumn: "MSISDN"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"994501234567", "994551112233"}, res.MSISDNs)
	assert.Equal(t, 1, res.Skipped)

	_, err = Load(config.Input{File: path, MSISDNColumn: "MSISDN", Sheet: "Missing"}, nil)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "Numbers")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		explicit config.InputFormat
		want     config.InputFormat
		wantErr  bool
	}{
		{"a.csv", "", config.FormatCSV, false},
		{"a.TXT", "", config.FormatCSV, false},
		{"a.tsv", "", config.FormatTSV, false},
		{"a.xlsx", "", config.FormatXLSX, false},
		{"a.xlsm", "", config.FormatXLSX, false},
		{"a.dat", config.FormatTSV, config.FormatTSV, false},
		{"a.xls", "", "", true},
		{"a.json", "", "", true},
		{"a.csv", "parquet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path, tt.explicit)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNumeric(t *testing.T) {
	tests := map[string]string{
		"994501234567":      "994501234567",
		"9.94501234567E+11": "994501234567",
		"994501234567.0":    "994501234567",
		"1.5":               "1.5",
		"+994":              "+994",
		"abc.def":           "abc.def",
		"-1e3":              "-1e3",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeNumeric(in), in)
	}
}
