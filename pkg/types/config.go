package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fulltext/0.3").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond limits outbound document retrieval (default 1).
	RequestsPerSecond float64 `json:"rate" yaml:"rate" mapstructure:"rate"`

	// MaxDocumentBytes caps the size of a retrieved document (default 100 MiB).
	MaxDocumentBytes int64 `json:"max_document_bytes" yaml:"max_document_bytes" mapstructure:"max_document_bytes"`
}

// SourcesConfig restricts where documents may be retrieved from.
type SourcesConfig struct {
	// Allowlist lists hosts from which retrieval is permitted
	// (default arxiv.org, export.arxiv.org). Subdomains are accepted.
	Allowlist []string `json:"allowlist" yaml:"allowlist" mapstructure:"allowlist"`
}

// ExtractionBackend identifies the tool that turns PDF bytes into text.
type ExtractionBackend string

const (
	BackendContainer ExtractionBackend = "container"
	BackendPdftotext ExtractionBackend = "pdftotext"
)

// ExtractorConfig holds settings for the text extraction step.
type ExtractorConfig struct {
	// Backend selects the extraction tool: container or pdftotext.
	Backend ExtractionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Image is the container image the extraction runs inside
	// (default arxiv/fulltext-extractor:0.3).
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// EventsConfig describes where completion notifications are published.
type EventsConfig struct {
	// Stream is the name of the downstream stream (default PDFIsAvailable).
	Stream string `json:"stream" yaml:"stream" mapstructure:"stream"`

	// Endpoint is the URL events are POSTed to. Empty means events are only logged.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
}

// EngineConfig holds settings for the execution engine worker pool.
type EngineConfig struct {
	// Workers is the number of concurrent extraction workers (default 2).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// PollInterval is how often idle workers check for queued jobs (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxAttempts caps executions of a job before it is failed (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryBackoff is the base delay before a retry; it doubles per attempt (default 5s).
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// OrphanAfter is how long a started job may go without an outcome
	// before a starting pool reclaims it (default 30m). It must exceed the
	// longest extraction.
	OrphanAfter time.Duration `json:"orphan_after" yaml:"orphan_after" mapstructure:"orphan_after"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// JSON switches from console output to production JSON output.
	JSON bool `json:"json" yaml:"json" mapstructure:"json"`

	// Level is the minimum level: debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config groups all settings for the fulltext service.
type Config struct {
	// StorageVolume is the persistent root holding the database (default /tmp/storage).
	StorageVolume string `json:"storage_volume" yaml:"storage_volume" mapstructure:"storage_volume"`

	HTTP      HTTPConfig      `json:"http" yaml:"http" mapstructure:"http"`
	Sources   SourcesConfig   `json:"sources" yaml:"sources" mapstructure:"sources"`
	Extractor ExtractorConfig `json:"extractor" yaml:"extractor" mapstructure:"extractor"`
	Events    EventsConfig    `json:"events" yaml:"events" mapstructure:"events"`
	Engine    EngineConfig    `json:"engine" yaml:"engine" mapstructure:"engine"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
