package config

import (
	"math"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "humanizer"

	// DefaultBackendURL is where the inference server listens by default.
	DefaultBackendURL = "http://127.0.0.1:8000"

	// DefaultListenAddress is the address of the HTTP API.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultThreshold is the AI probability at or above which a text is
	// reported as AI generated.
	DefaultThreshold = 0.7

	// DefaultGranularity is the segmentation used by granular detection.
	DefaultGranularity = "sentence"

	// DefaultMinSegmentLength is the shortest segment, in characters, that
	// is scored on its own. Shorter segments are merged with a neighbor.
	DefaultMinSegmentLength = 10

	// DefaultChunkSize is the window size, in characters, of chunk
	// segmentation.
	DefaultChunkSize = 200

	// DefaultDetectTimeout bounds one detector call.
	DefaultDetectTimeout = 30 * time.Second

	// DefaultGenerateTimeout bounds one generator call. Generation is much
	// slower than scoring on CPU-only backends.
	DefaultGenerateTimeout = 2 * time.Minute

	// DefaultBackendTimeout bounds one HTTP exchange with the backend.
	DefaultBackendTimeout = 5 * time.Minute

	// DefaultShutdownTimeout is the grace period of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second

	// Input length limits in characters.
	DefaultMinDetectLength   = 50
	DefaultMaxDetectLength   = 10000
	DefaultMinHumanizeLength = 10
	DefaultMaxHumanizeLength = 5000

	// DefaultLogFormat is the slog handler used for log output.
	DefaultLogFormat = "text"

	// DefaultHistoryLimit is the number of history entries listed by default.
	DefaultHistoryLimit = 20
)

// DefaultDetectors returns the detectors used when a request names none.
func DefaultDetectors() []string {
	return []string{"chatgpt-detector", "mixed-detector"}
}

// Config holds every setting of the CLI and the HTTP server.
//
// Values are layered: NewConfig defaults, then the YAML file, then
// HUMANIZER_* environment variables, then command line flags.
type Config struct {
	// BackendURL is the base URL of the inference server. Empty means only
	// built-in models are available.
	BackendURL string `env:"BACKEND_URL"`

	// Endpoints serves individual models from dedicated servers.
	Endpoints map[string]string

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for backend
	// traffic.
	ProxyAddress string `env:"PROXY"`

	// APIKey is sent as a bearer token to the backend.
	APIKey string `env:"API_KEY"`

	// BackendTimeout bounds one HTTP exchange with the backend.
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT"`

	// InitialModel is the generator the backend preloads at startup.
	InitialModel string `env:"INITIAL_MODEL"`

	// ListenAddress is the address of the HTTP API.
	ListenAddress string `env:"LISTEN_ADDRESS"`

	// CORSOrigins lists the origins allowed by the HTTP API. Empty allows
	// all origins.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// ShutdownTimeout is the grace period of the HTTP server.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// Threshold is the default decision threshold.
	Threshold float64 `env:"THRESHOLD"`

	// Detectors are the default detector ids.
	Detectors []string `env:"DETECTORS" envSeparator:","`

	// Weights overrides the ensemble weight of individual detectors.
	Weights map[string]float64

	// Granularity, MinSegmentLength and ChunkSize are the segmentation
	// defaults.
	Granularity      string `env:"GRANULARITY"`
	MinSegmentLength int    `env:"MIN_SEGMENT_LENGTH"`
	ChunkSize        int    `env:"CHUNK_SIZE"`

	// DetectTimeout and GenerateTimeout bound single model calls.
	DetectTimeout   time.Duration `env:"DETECT_TIMEOUT"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT"`

	// Input length limits in characters.
	MinDetectLength   int `env:"MIN_DETECT_LENGTH"`
	MaxDetectLength   int `env:"MAX_DETECT_LENGTH"`
	MinHumanizeLength int `env:"MIN_HUMANIZE_LENGTH"`
	MaxHumanizeLength int `env:"MAX_HUMANIZE_LENGTH"`

	// Goals overrides the goal to model map used for recommendations.
	Goals map[string]string

	// Verbose enables debug logging.
	Verbose bool `env:"VERBOSE"`

	// LogFormat is "text" or "json".
	LogFormat string `env:"LOG_FORMAT"`

	// OTLPEndpoint enables tracing export when set.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	// OTLPHeaders are extra exporter headers, "k1=v1,k2=v2".
	OTLPHeaders string `env:"OTLP_HEADERS"`

	// DBDir is the directory of the SQLite history. Empty disables history.
	DBDir string `env:"DB_DIR"`

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the CLI output format. They are
	// mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile redirects CLI output to a file.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BackendURL:        DefaultBackendURL,
		Endpoints:         make(map[string]string),
		BackendTimeout:    DefaultBackendTimeout,
		ListenAddress:     DefaultListenAddress,
		ShutdownTimeout:   DefaultShutdownTimeout,
		Threshold:         DefaultThreshold,
		Detectors:         DefaultDetectors(),
		Weights:           make(map[string]float64),
		Granularity:       DefaultGranularity,
		MinSegmentLength:  DefaultMinSegmentLength,
		ChunkSize:         DefaultChunkSize,
		DetectTimeout:     DefaultDetectTimeout,
		GenerateTimeout:   DefaultGenerateTimeout,
		MinDetectLength:   DefaultMinDetectLength,
		MaxDetectLength:   DefaultMaxDetectLength,
		MinHumanizeLength: DefaultMinHumanizeLength,
		MaxHumanizeLength: DefaultMaxHumanizeLength,
		LogFormat:         DefaultLogFormat,
	}
}

// XDGDataDir returns the XDG data directory for humanizer.
// On Linux: ~/.local/share/humanizer
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for humanizer.
// On Linux: ~/.config/humanizer
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HistoryEnabled reports whether results are recorded to the database.
func (c *Config) HistoryEnabled() bool {
	return c.DBDir != ""
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if len(c.Detectors) == 0 || slices.Contains(c.Detectors, "") {
		return ErrNoDetectors
	}
	if !slices.Contains([]string{"sentence", "line", "chunk"}, c.Granularity) {
		return ErrInvalidGranularity
	}
	if c.MinSegmentLength < 0 || c.ChunkSize < 1 {
		return ErrInvalidSegmentation
	}
	if c.DetectTimeout <= 0 || c.GenerateTimeout <= 0 || c.BackendTimeout < 0 || c.ShutdownTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MinDetectLength < 1 || c.MinDetectLength > c.MaxDetectLength ||
		c.MinHumanizeLength < 1 || c.MinHumanizeLength > c.MaxHumanizeLength {
		return ErrInvalidLengthLimits
	}
	for id, w := range c.Weights {
		if math.IsNaN(w) || w <= 0 {
			return &WeightError{ModelID: id, Weight: w}
		}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
