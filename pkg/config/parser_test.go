package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

func TestJobLoader_ValidMinimalConfig(t *testing.T) {
	// minimal valid config
	yamlContent := `
name: contacts
source:
  endpoint: https://api.example.com/api/v1/contacts/search?
input:
  file: msisdns.csv
  msisdn_column: msisdn
extract:
  keys:
    - individualId
    - accounts.accountInternalId
`

	job, err := NewDefaultLoader().Parse([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse valid config: %v", err)
	}

	if job.Name != "contacts" {
		t.Errorf("Expected name 'contacts', got '%s'", job.Name)
	}
	if job.Source.Endpoint != "https://api.example.com/api/v1/contacts/search" {
		t.Errorf("Expected trailing '?' to be stripped, got '%s'", job.Source.Endpoint)
	}
	if job.Source.Method != "GET" {
		t.Errorf("Expected default method 'GET', got '%s'", job.Source.Method)
	}
	if job.Source.Target.Mode != TargetModeQuery || job.Source.Target.Param != "msisdn" {
		t.Errorf("Expected default target query/msisdn, got %s/%s", job.Source.Target.Mode, job.Source.Target.Param)
	}
	if job.Source.TimeoutSeconds != 30 {
		t.Errorf("Expected default timeout 30, got %v", job.Source.TimeoutSeconds)
	}
	if got := job.Source.Retry.MaxRetriesValue(); got != 3 {
		t.Errorf("Expected default max_retries 3, got %d", got)
	}
	if job.Source.Retry.BackoffStrategy != BackoffExponential {
		t.Errorf("Expected default strategy exponential, got %s", job.Source.Retry.BackoffStrategy)
	}
	if !job.Input.DigitsOnlyEnabled() {
		t.Error("Expected digits_only to default to true")
	}
	if job.Output.IdentifierColumn != "msisdn" {
		t.Errorf("Expected identifier column 'msisdn', got '%s'", job.Output.IdentifierColumn)
	}
	if job.Workers != 1 {
		t.Errorf("Expected 1 worker, got %d", job.Workers)
	}
	if len(job.Extract.Keys) != 2 || job.Extract.Keys[1] != "accounts.accountInternalId" {
		t.Errorf("Expected keys to keep order, got %v", job.Extract.Keys)
	}
}

func TestJobLoader_FullConfig(t *testing.T) {
	t.Setenv("CONTACTS_TOKEN", "s3cr3t")

	yamlContent := `
source:
  endpoint: https://api.example.com/subscribers/{{msisdn}}/profile
  method: get
  target:
    mode: template
    header: Msisdn
  headers:
    X-Channel: batch
  auth:
    type: bearer
    bearer:
      token: ${CONTACTS_TOKEN}
  timeout_seconds: 2.5
  retry:
    max_retries: 0
    retry_backoff_seconds: 0.25
    backoff_strategy: fixed
    retry_statuses: [502, 503]
  rate_limit:
    requests_per_second: 10
input:
  file: numbers.xlsx
  msisdn_column: MSISDN
  sheet: Numbers
  digits_only: false
extract:
  keys: [individualId, document.pin]
  transforms:
    document.pin: trim
output:
  file: out.xlsx
  identifier_column: subscriber
workers: 4
`

	job, err := NewDefaultLoader().Parse([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if job.Source.Method != "GET" {
		t.Errorf("Expected method to be upper-cased, got %s", job.Source.Method)
	}
	if job.Source.Auth.Bearer.Token != "s3cr3t" {
		t.Errorf("Expected env expansion of token, got %q", job.Source.Auth.Bearer.Token)
	}
	if got := job.Source.Retry.MaxRetriesValue(); got != 0 {
		t.Errorf("Expected explicit max_retries 0 to be kept, got %d", got)
	}
	if got := job.Source.Retry.BackoffSecondsValue(); got != 0.25 {
		t.Errorf("Expected backoff 0.25, got %v", got)
	}
	if job.Source.RateLimit.Burst != 1 {
		t.Errorf("Expected default burst 1, got %d", job.Source.RateLimit.Burst)
	}
	if job.Input.DigitsOnlyEnabled() {
		t.Error("Expected digits_only false to be kept")
	}
	if job.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", job.Workers)
	}
}

func TestJobLoader_ReportsAllViolations(t *testing.T) {
	yamlContent := `
source:
  endpoint: ftp://files.example.com
  target:
    mode: fragment
  retry:
    max_retries: -1
    backoff_strategy: random
  rate_limit:
    requests_per_second: 0
input:
  format: parquet
  delimiter: "::"
extract:
  keys: ["a..b", "ok", "ok", "status"]
  transforms:
    ok: shout
    missing: trim
workers: -2
`

	_, err := NewDefaultLoader().Parse([]byte(yamlContent))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}

	var ve ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationErrors in chain, got %T", err)
	}

	wantFields := []string{
		"source.endpoint",
		"source.target.mode",
		"source.retry.max_retries",
		"source.retry.backoff_strategy",
		"source.rate_limit.requests_per_second",
		"workers",
		"input.msisdn_column",
		"input.file",
		"input.format",
		"input.delimiter",
		"extract.keys[0]",
		"extract.keys[2]",
		"extract.keys[3]",
		"extract.transforms.ok",
		"extract.transforms.missing",
	}
	got := make(map[string]bool)
	for _, e := range ve {
		got[e.Field] = true
	}
	for _, f := range wantFields {
		if !got[f] {
			t.Errorf("Expected a violation for %s, got %v", f, ve)
		}
	}
}

func TestJobLoader_EndpointRules(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		mode     string
		wantErr  string
	}{
		{"no scheme", "api.example.com/search", "query", "http:// or https://"},
		{"no host", "https:///search", "query", "host"},
		{"template without placeholder", "https://api.example.com/search", "template", "{{msisdn}}"},
		{"path mode ok", "https://api.example.com/subscribers", "path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				Source:  Source{Endpoint: tt.endpoint, Target: Target{Mode: TargetMode(tt.mode)}},
				Input:   Input{File: "in.csv", MSISDNColumn: "msisdn"},
				Extract: Extract{Keys: []string{"id"}},
			}
			err := NewDefaultLoader().Finalize(job)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestJobLoader_AuthRules(t *testing.T) {
	base := func(a *Auth) *Job {
		return &Job{
			Source:  Source{Endpoint: "https://api.example.com", Auth: a},
			Input:   Input{File: "in.csv", MSISDNColumn: "msisdn"},
			Extract: Extract{Keys: []string{"id"}},
		}
	}

	bad := map[string]*Auth{
		"basic without block":  {Type: AuthTypeBasic},
		"basic without user":   {Type: AuthTypeBasic, Basic: &BasicAuth{Password: "p"}},
		"bearer without token": {Type: AuthTypeBearer, Bearer: &BearerAuth{}},
		"api key without dest": {Type: AuthTypeAPIKey, APIKey: &APIKeyAuth{Value: "k"}},
		"unknown type":         {Type: "oauth2"},
	}
	for name, a := range bad {
		t.Run(name, func(t *testing.T) {
			if err := NewDefaultLoader().Finalize(base(a)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	good := &Auth{Type: AuthTypeAPIKey, APIKey: &APIKeyAuth{Header: "X-API-Key", Value: "k"}}
	if err := NewDefaultLoader().Finalize(base(good)); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestJobLoader_ColumnCollisions(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		keys       []string
		wantField  string
	}{
		{"identifier named status", "status", []string{"id"}, "output.identifier_column"},
		{"identifier named error", "error", []string{"id"}, "output.identifier_column"},
		{"key named like identifier", "subscriber", []string{"subscriber"}, "extract.keys[0]"},
		{"key named error", "msisdn", []string{"id", "error"}, "extract.keys[1]"},
		{"no collision", "subscriber", []string{"id", "document.status"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				Source:  Source{Endpoint: "https://api.example.com"},
				Input:   Input{File: "in.csv", MSISDNColumn: "msisdn"},
				Extract: Extract{Keys: tt.keys},
				Output:  Output{IdentifierColumn: tt.identifier},
			}
			err := NewDefaultLoader().Finalize(job)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}

			var ve ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range ve {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected a violation for %s, got %v", tt.wantField, ve)
			}
		})
	}
}

func TestJobLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	content := `
source:
  endpoint: http://localhost:8080/lookup
input:
  file: in.csv
  msisdn_column: number
extract:
  keys: [id]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := NewDefaultLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if job.Input.MSISDNColumn != "number" {
		t.Errorf("Expected column 'number', got %q", job.Input.MSISDNColumn)
	}

	_, err = NewDefaultLoader().Load(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for missing file, got %v", err)
	}
}

func TestJobLoader_DecodeThenOverride(t *testing.T) {
	loader := NewDefaultLoader()

	job, err := loader.Unmarshal([]byte(`
source:
  endpoint: http://localhost/lookup
extract:
  keys: [id]
`))
	if err != nil {
		t.Fatal(err)
	}

	// input comes from flags in the CLI
	if err := loader.Finalize(job); err == nil {
		t.Fatal("Expected missing input to fail validation")
	}

	job.Input.File = "in.csv"
	job.Input.MSISDNColumn = "msisdn"
	if err := loader.Finalize(job); err != nil {
		t.Fatalf("Expected overrides to satisfy validation, got %v", err)
	}
}

func TestJobLoader_MalformedYAML(t *testing.T) {
	_, err := NewDefaultLoader().Parse([]byte("source: [unterminated"))
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
