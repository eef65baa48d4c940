package config

// Job represents the full config for one extraction run
type Job struct {
	Name        string  `yaml:"name,omitempty"`        // Optional identifier used in logs
	Description string  `yaml:"description,omitempty"` // Optional description
	Source      Source  `yaml:"source"`                // Required API configuration
	Input       Input   `yaml:"input"`                 // Required input table
	Extract     Extract `yaml:"extract"`               // Required key paths
	Output      Output  `yaml:"output,omitempty"`      // Optional output table
	Workers     int     `yaml:"workers,omitempty"`     // Concurrent identifiers (default 1)
}

// Source represents API config
type Source struct {
	Endpoint           string            `yaml:"endpoint"`                       // Required base endpoint
	Method             string            `yaml:"method,omitempty"`               // HTTP method (default GET)
	Target             Target            `yaml:"target,omitempty"`               // How the identifier joins the endpoint
	Headers            map[string]string `yaml:"headers,omitempty"`              // Extra HTTP headers
	QueryParams        map[string]string `yaml:"query_params,omitempty"`         // Static query parameters
	Auth               *Auth             `yaml:"auth,omitempty"`                 // Optional static credentials
	TimeoutSeconds     float64           `yaml:"timeout_seconds,omitempty"`      // Per attempt (default 30)
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify,omitempty"` // Disable TLS verification
	Retry              RetryConfig       `yaml:"retry,omitempty"`
	RateLimit          *RateLimit        `yaml:"rate_limit,omitempty"`
}

// TargetMode defines how the identifier is combined with the endpoint
type TargetMode string

const (
	TargetModeQuery    TargetMode = "query"
	TargetModePath     TargetMode = "path"
	TargetModeTemplate TargetMode = "template"
)

// TemplatePlaceholder marks where the identifier goes in template mode
const TemplatePlaceholder = "{{msisdn}}"

// Target describes the request target for one identifier
type Target struct {
	Mode   TargetMode `yaml:"mode,omitempty"`   // query (default), path or template
	Param  string     `yaml:"param,omitempty"`  // Query parameter name in query mode (default msisdn)
	Header string     `yaml:"header,omitempty"` // Optional header that also carries the identifier
}

// Auth defines static credentials.
type Auth struct {
	Type   AuthType    `yaml:"type"`              // Required authentication type
	Basic  *BasicAuth  `yaml:"basic,omitempty"`   // Basic authentication
	Bearer *BearerAuth `yaml:"bearer,omitempty"`  // Bearer token
	APIKey *APIKeyAuth `yaml:"api_key,omitempty"` // API key authentication
}

// AuthType defines current supported authentication types
type AuthType string

const (
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
)

// BasicAuth contains auth credentials for the api
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BearerAuth contains a static bearer token
type BearerAuth struct {
	Token  string `yaml:"token"`
	Scheme string `yaml:"scheme,omitempty"` // Authorization scheme (default Bearer)
}

// APIKeyAuth contains API details
type APIKeyAuth struct {
	Header     string `yaml:"header,omitempty"`      // Header name
	QueryParam string `yaml:"query_param,omitempty"` // Query parameter name
	Value      string `yaml:"value"`                 // API key value
}

// BackoffStrategy names how the delay between attempts grows
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig controls the per-identifier retry loop.
// MaxRetries is a pointer so an explicit 0 is distinguishable from unset.
type RetryConfig struct {
	MaxRetries          *int            `yaml:"max_retries,omitempty"`           // Additional attempts after the first
	RetryBackoffSeconds *float64        `yaml:"retry_backoff_seconds,omitempty"` // Base delay between attempts
	BackoffStrategy     BackoffStrategy `yaml:"backoff_strategy,omitempty"`      // fixed, linear or exponential
	BackoffMultiplier   float64         `yaml:"backoff_multiplier,omitempty"`    // Growth factor for exponential
	RetryStatuses       []int           `yaml:"retry_statuses,omitempty"`        // Empty means every status >= 400
}

// RateLimit caps outbound attempts across all workers
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst,omitempty"`
}

// InputFormat defines supported input table formats
type InputFormat string

const (
	FormatCSV  InputFormat = "csv"
	FormatTSV  InputFormat = "tsv"
	FormatXLSX InputFormat = "xlsx"
)

// Input describes where identifiers come from
type Input struct {
	File         string      `yaml:"file"`                  // Path to the input table
	MSISDNColumn string      `yaml:"msisdn_column"`         // Required column name
	Format       InputFormat `yaml:"format,omitempty"`      // Overrides extension detection
	Sheet        string      `yaml:"sheet,omitempty"`       // XLSX sheet (default first)
	Delimiter    string      `yaml:"delimiter,omitempty"`   // CSV delimiter override
	DigitsOnly   *bool       `yaml:"digits_only,omitempty"` // Skip non-digit values (default true)
	Limit        int         `yaml:"limit,omitempty"`       // Read at most this many identifiers
}

// Extract lists the key paths pulled out of each response
type Extract struct {
	Keys       []string          `yaml:"keys"`                 // Required, ordered
	Transforms map[string]string `yaml:"transforms,omitempty"` // Key path -> transform name
}

// Output describes the output table
type Output struct {
	File             string      `yaml:"file,omitempty"`              // Default extracted_data_<timestamp>.csv
	Format           InputFormat `yaml:"format,omitempty"`            // Overrides extension detection
	IdentifierColumn string      `yaml:"identifier_column,omitempty"` // Default msisdn
}

// Defaults applied by JobDefaults
const (
	DefaultMethod            = "GET"
	DefaultTargetParam       = "msisdn"
	DefaultTimeoutSeconds    = 30.0
	DefaultMaxRetries        = 3
	DefaultBackoffSeconds    = 1.0
	DefaultBackoffMultiplier = 2.0
	DefaultIdentifierColumn  = "msisdn"
)

// DigitsOnlyEnabled reports whether non-digit identifiers are skipped.
func (in Input) DigitsOnlyEnabled() bool {
	return in.DigitsOnly == nil || *in.DigitsOnly
}

// MaxRetriesValue returns the configured retry count or the default.
func (r RetryConfig) MaxRetriesValue() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// BackoffSecondsValue returns the configured base delay or the default.
func (r RetryConfig) BackoffSecondsValue() float64 {
	if r.RetryBackoffSeconds == nil {
		return DefaultBackoffSeconds
	}
	return *r.RetryBackoffSeconds
}
