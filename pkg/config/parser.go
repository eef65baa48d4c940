package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
	"github.com/saturnines/msisdn-extractor/pkg/keypath"
	"github.com/saturnines/msisdn-extractor/pkg/transform"
)

type ValidationError struct {
	Field   string
	Message string
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every violation found in one pass
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	parts := make([]string, len(ve))
	for i, e := range ve {
		parts[i] = e.Error()
	}
	return "validation errors: " + strings.Join(parts, "; ")
}

type Validator interface {
	Validate(job *Job) []ValidationError
}

// DefaultValueSetter Handles the interface for setting default values
type DefaultValueSetter interface {
	SetDefaults(job *Job)
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands ${VAR} and $VAR references with environment values
func (e *EnvExpander) Expand(data []byte) []byte {
	expanded := os.Expand(string(data), os.Getenv)
	return []byte(expanded)
}

// JobLoader turns YAML into a validated Job
type JobLoader struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewJobLoader creates a new JobLoader with the given components
func NewJobLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *JobLoader {
	return &JobLoader{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// NewDefaultLoader wires env expansion, defaults and every validator
func NewDefaultLoader() *JobLoader {
	return NewJobLoader(
		&EnvExpander{},
		&JobDefaults{},
		&RequiredFieldValidator{},
		&SourceValidator{},
		&RetryValidator{},
		&AuthValidator{},
		&KeyPathValidator{},
		&InputValidator{},
	)
}

// Load a job config from a YAML file
func (l *JobLoader) Load(path string) (*Job, error) {
	job, err := l.Decode(path)
	if err != nil {
		return nil, err
	}
	if err := l.Finalize(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Parse parses and validates a YAML config
func (l *JobLoader) Parse(data []byte) (*Job, error) {
	job, err := l.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := l.Finalize(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Decode reads a YAML file without applying defaults or validation, so that
// callers can layer overrides on top before calling Finalize.
func (l *JobLoader) Decode(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "failed to read file")
	}
	return l.Unmarshal(data)
}

// Unmarshal expands variables and decodes YAML into a Job
func (l *JobLoader) Unmarshal(data []byte) (*Job, error) {
	// Expand variables if an expander is configured
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "failed to parse YAML")
	}
	return &job, nil
}

// Finalize applies defaults and runs every validator
func (l *JobLoader) Finalize(job *Job) error {
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(job)
	}

	var all ValidationErrors
	for _, validator := range l.validators {
		all = append(all, validator.Validate(job)...)
	}
	if len(all) > 0 {
		return errors.WrapError(all, errors.ErrValidation, "invalid job configuration")
	}
	return nil
}

// JobDefaults implements DefaultValueSetter for Job
type JobDefaults struct{}

// SetDefaults fills in every option the user left unset
func (d *JobDefaults) SetDefaults(job *Job) {
	// Trailing separators are left over from hand-built query strings
	job.Source.Endpoint = strings.TrimRight(strings.TrimSpace(job.Source.Endpoint), "&?")

	if job.Source.Method == "" {
		job.Source.Method = DefaultMethod
	}
	job.Source.Method = strings.ToUpper(job.Source.Method)

	if job.Source.Target.Mode == "" {
		job.Source.Target.Mode = TargetModeQuery
	}
	if job.Source.Target.Mode == TargetModeQuery && job.Source.Target.Param == "" {
		job.Source.Target.Param = DefaultTargetParam
	}
	if job.Source.TimeoutSeconds == 0 {
		job.Source.TimeoutSeconds = DefaultTimeoutSeconds
	}

	r := &job.Source.Retry
	if r.MaxRetries == nil {
		n := DefaultMaxRetries
		r.MaxRetries = &n
	}
	if r.RetryBackoffSeconds == nil {
		s := DefaultBackoffSeconds
		r.RetryBackoffSeconds = &s
	}
	if r.BackoffStrategy == "" {
		r.BackoffStrategy = BackoffExponential
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = DefaultBackoffMultiplier
	}

	if job.Source.RateLimit != nil && job.Source.RateLimit.Burst == 0 {
		job.Source.RateLimit.Burst = 1
	}

	if job.Input.DigitsOnly == nil {
		on := true
		job.Input.DigitsOnly = &on
	}
	if job.Output.IdentifierColumn == "" {
		job.Output.IdentifierColumn = DefaultIdentifierColumn
	}
	if job.Workers == 0 {
		job.Workers = 1
	}
}

// RequiredFieldValidator validates required fields
type RequiredFieldValidator struct{}

// Validate checks that all required fields are present
func (v *RequiredFieldValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError

	if job.Source.Endpoint == "" {
		errs = append(errs, ValidationError{Field: "source.endpoint", Message: "is required"})
	}
	if len(job.Extract.Keys) == 0 {
		errs = append(errs, ValidationError{Field: "extract.keys", Message: "at least one key is required"})
	}
	if job.Input.MSISDNColumn == "" {
		errs = append(errs, ValidationError{Field: "input.msisdn_column", Message: "is required"})
	}
	if job.Input.File == "" {
		errs = append(errs, ValidationError{Field: "input.file", Message: "is required"})
	}

	return errs
}

// SourceValidator checks the endpoint, method and target mode
type SourceValidator struct{}

// Validate checks the request side of the job
func (v *SourceValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError
	src := job.Source

	if src.Endpoint != "" {
		// The template placeholder is not valid URL syntax for every parser
		raw := strings.ReplaceAll(src.Endpoint, TemplatePlaceholder, "x")
		u, err := url.Parse(raw)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: "source.endpoint", Message: fmt.Sprintf("invalid URL: %v", err)})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, ValidationError{Field: "source.endpoint", Message: "must start with http:// or https://"})
		case u.Host == "":
			errs = append(errs, ValidationError{Field: "source.endpoint", Message: "must include a host"})
		}
	}

	switch src.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		errs = append(errs, ValidationError{Field: "source.method", Message: fmt.Sprintf("unsupported method: %s", src.Method)})
	}

	switch src.Target.Mode {
	case TargetModeQuery:
		if src.Target.Param == "" {
			errs = append(errs, ValidationError{Field: "source.target.param", Message: "is required for query mode"})
		}
	case TargetModePath:
	case TargetModeTemplate:
		if !strings.Contains(src.Endpoint, TemplatePlaceholder) {
			errs = append(errs, ValidationError{
				Field:   "source.endpoint",
				Message: fmt.Sprintf("must contain %s in template mode", TemplatePlaceholder),
			})
		}
	default:
		errs = append(errs, ValidationError{Field: "source.target.mode", Message: fmt.Sprintf("unknown target mode: %s", src.Target.Mode)})
	}

	if src.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{Field: "source.timeout_seconds", Message: "must be positive"})
	}

	return errs
}

// RetryValidator checks retry, rate limit and worker settings
type RetryValidator struct{}

// Validate checks that the retry loop is bounded and sane
func (v *RetryValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError
	r := job.Source.Retry

	if r.MaxRetriesValue() < 0 {
		errs = append(errs, ValidationError{Field: "source.retry.max_retries", Message: "must not be negative"})
	}
	if r.BackoffSecondsValue() < 0 {
		errs = append(errs, ValidationError{Field: "source.retry.retry_backoff_seconds", Message: "must not be negative"})
	}

	switch r.BackoffStrategy {
	case BackoffFixed, BackoffLinear:
	case BackoffExponential:
		if r.BackoffMultiplier < 1 {
			errs = append(errs, ValidationError{Field: "source.retry.backoff_multiplier", Message: "must be at least 1"})
		}
	default:
		errs = append(errs, ValidationError{Field: "source.retry.backoff_strategy", Message: fmt.Sprintf("unknown backoff strategy: %s", r.BackoffStrategy)})
	}

	for _, status := range r.RetryStatuses {
		if status < 400 || status > 599 {
			errs = append(errs, ValidationError{Field: "source.retry.retry_statuses", Message: fmt.Sprintf("%d is not an error status", status)})
		}
	}

	if rl := job.Source.RateLimit; rl != nil {
		if rl.RequestsPerSecond <= 0 {
			errs = append(errs, ValidationError{Field: "source.rate_limit.requests_per_second", Message: "must be positive"})
		}
		if rl.Burst < 1 {
			errs = append(errs, ValidationError{Field: "source.rate_limit.burst", Message: "must be at least 1"})
		}
	}

	if job.Workers < 1 {
		errs = append(errs, ValidationError{Field: "workers", Message: "must be at least 1"})
	}

	return errs
}

// AuthValidator handles authentication validation
type AuthValidator struct{}

// Validate checks that authentication configuration is valid
func (v *AuthValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError

	a := job.Source.Auth
	if a == nil {
		return errs
	}

	switch a.Type {
	case AuthTypeBasic:
		if a.Basic == nil {
			errs = append(errs, ValidationError{Field: "auth.basic", Message: "is required for basic auth"})
		} else if a.Basic.Username == "" {
			errs = append(errs, ValidationError{Field: "auth.basic.username", Message: "is required for basic auth"})
		}
	case AuthTypeBearer:
		if a.Bearer == nil || a.Bearer.Token == "" {
			errs = append(errs, ValidationError{Field: "auth.bearer.token", Message: "is required for bearer auth"})
		}
	case AuthTypeAPIKey:
		if a.APIKey == nil {
			errs = append(errs, ValidationError{Field: "auth.api_key", Message: "is required for api_key auth"})
		} else {
			if a.APIKey.Value == "" {
				errs = append(errs, ValidationError{Field: "auth.api_key.value", Message: "is required for api_key auth"})
			}
			if a.APIKey.Header == "" && a.APIKey.QueryParam == "" {
				errs = append(errs, ValidationError{Field: "auth.api_key", Message: "either header or query_param must be specified for api_key auth"})
			}
		}
	default:
		errs = append(errs, ValidationError{Field: "auth.type", Message: fmt.Sprintf("unknown auth type: %s", a.Type)})
	}

	return errs
}

// KeyPathValidator checks key paths, their transforms and output headers
type KeyPathValidator struct{}

// Validate checks that every key path is well formed and maps to a unique column
func (v *KeyPathValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError

	// status and error always follow the key columns
	if c := job.Output.IdentifierColumn; c == "status" || c == "error" {
		errs = append(errs, ValidationError{
			Field:   "output.identifier_column",
			Message: fmt.Sprintf("%q collides with the %s column", c, c),
		})
	}

	reserved := map[string]string{
		"status": "status column",
		"error":  "error column",
	}
	if _, taken := reserved[job.Output.IdentifierColumn]; !taken {
		reserved[job.Output.IdentifierColumn] = "output.identifier_column"
	}

	seen := make(map[string]struct{}, len(job.Extract.Keys))
	for i, key := range job.Extract.Keys {
		field := fmt.Sprintf("extract.keys[%d]", i)

		if err := keypath.Validate(key); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if _, dup := seen[key]; dup {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate key: %s", key)})
			continue
		}
		seen[key] = struct{}{}

		if owner, clash := reserved[key]; clash {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("key %q collides with the %s", key, owner)})
		}
	}

	for key, name := range job.Extract.Transforms {
		if _, ok := seen[key]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("extract.transforms.%s", key),
				Message: "references a key that is not extracted",
			})
		}
		if _, err := transform.DefaultRegistry.Parse(name); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("extract.transforms.%s", key),
				Message: err.Error(),
			})
		}
	}

	return errs
}

// InputValidator checks the input and output table settings
type InputValidator struct{}

// Validate checks formats, delimiter and limits
func (v *InputValidator) Validate(job *Job) []ValidationError {
	var errs []ValidationError

	if !validFormat(job.Input.Format) {
		errs = append(errs, ValidationError{Field: "input.format", Message: fmt.Sprintf("unknown format: %s", job.Input.Format)})
	}
	if !validFormat(job.Output.Format) {
		errs = append(errs, ValidationError{Field: "output.format", Message: fmt.Sprintf("unknown format: %s", job.Output.Format)})
	}
	if d := job.Input.Delimiter; d != "" && len([]rune(d)) != 1 {
		errs = append(errs, ValidationError{Field: "input.delimiter", Message: "must be a single character"})
	}
	if job.Input.Limit < 0 {
		errs = append(errs, ValidationError{Field: "input.limit", Message: "must not be negative"})
	}

	return errs
}

func validFormat(f InputFormat) bool {
	switch f {
	case "", FormatCSV, FormatTSV, FormatXLSX:
		return true
	}
	return false
}
