package core

import (
	"github.com/saturnines/msisdn-extractor/pkg/jsonvalue"
)

// Status is the outcome of one identifier
type Status string

const (
	StatusSuccess           Status = "success"
	StatusRequestFailed     Status = "request_failed"
	StatusMalformedResponse Status = "malformed_response"
)

// Field is the outcome of one key path for one identifier.
// Found is false when the path missed or the request never produced a document.
type Field struct {
	Key   string
	Value jsonvalue.Value
	Found bool
	Miss  *PathNotFoundError // nil when Found, or when the step itself failed
}

// Result is one output row
type Result struct {
	Identifier string
	Fields     []Field // same order as the configured keys
	Status     Status
	Err        error
	Attempts   int
	HTTPStatus int
}

// Field looks up the field for key
func (r Result) Field(key string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// ErrorText is the error message, or "" on success
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ResultSet holds one Result per input identifier, in input order
type ResultSet []Result

// Summary counts outcomes across a ResultSet
type Summary struct {
	Total             int
	Success           int
	RequestFailed     int
	MalformedResponse int
	Misses            map[string]int // key path -> rows where it did not resolve
}

// Failed is the number of rows that are not successful
func (s Summary) Failed() int {
	return s.RequestFailed + s.MalformedResponse
}

// Summary computes counts per status and per-key misses.
// Per-key misses only count rows with a parsed document.
func (rs ResultSet) Summary() Summary {
	s := Summary{Total: len(rs), Misses: make(map[string]int)}
	for _, r := range rs {
		switch r.Status {
		case StatusSuccess:
			s.Success++
			for _, f := range r.Fields {
				if !f.Found {
					s.Misses[f.Key]++
				}
			}
		case StatusRequestFailed:
			s.RequestFailed++
		case StatusMalformedResponse:
			s.MalformedResponse++
		}
	}
	return s
}

// absentFields returns a row of not-found fields for keys
func absentFields(keys []string) []Field {
	fields := make([]Field, len(keys))
	for i, k := range keys {
		fields[i] = Field{Key: k}
	}
	return fields
}
