package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the full service configuration: the documentation surface, the optional
// gateway aggregation and the HTTP server that exposes both.
type Config struct {
	App     AppConfig     `koanf:"app" json:"app" yaml:"app"`
	Server  ServerConfig  `koanf:"server" json:"server" yaml:"server"`
	Log     LogConfig     `koanf:"log" json:"log" yaml:"log"`
	Docs    DocsConfig    `koanf:"docs" json:"docs" yaml:"docs"`
	Gateway GatewayConfig `koanf:"gateway" json:"gateway" yaml:"gateway"`

	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	// k keeps the merged sources for module-specific settings, see Custom.
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
	Debug   bool   `koanf:"debug" json:"debug" yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host" yaml:"host"`
	Port    int           `koanf:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	Timeout TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Path    PathConfig    `koanf:"path" json:"path" yaml:"path"`
}

// TimeoutConfig holds the HTTP server timeouts.
type TimeoutConfig struct {
	Read     time.Duration `koanf:"read" json:"read" yaml:"read" validate:"gt=0"`
	Write    time.Duration `koanf:"write" json:"write" yaml:"write" validate:"gt=0"`
	Idle     time.Duration `koanf:"idle" json:"idle" yaml:"idle" validate:"gt=0"`
	Shutdown time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown" validate:"gt=0"`
}

// PathConfig holds route prefixes and probe paths.
type PathConfig struct {
	Base   string `koanf:"base" json:"base" yaml:"base"`
	Health string `koanf:"health" json:"health" yaml:"health" validate:"startswith=/"`
	Ready  string `koanf:"ready" json:"ready" yaml:"ready" validate:"startswith=/"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// DocsConfig drives the generated OpenAPI document.
type DocsConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Path serves the JSON document; Path + ".yaml" serves YAML.
	Path string `koanf:"path" json:"path" yaml:"path" validate:"startswith=/"`
	// BasePackage restricts documentation to handlers declared under this import path.
	BasePackage string `koanf:"basepackage" json:"basepackage" yaml:"basepackage"`
	// IndexRedirect redirects / and /index to the swagger UI.
	IndexRedirect bool `koanf:"indexredirect" json:"indexredirect" yaml:"indexredirect"`
	// Referer, when set, adds a required header parameter component defaulting to it.
	Referer      string             `koanf:"referer" json:"referer" yaml:"referer"`
	RefererName  string             `koanf:"referername" json:"referername" yaml:"referername"`
	Info         InfoConfig         `koanf:"info" json:"info" yaml:"info"`
	ExternalDocs ExternalDocsConfig `koanf:"externaldocs" json:"externaldocs" yaml:"externaldocs"`
	OAuth        OAuthConfig        `koanf:"oauth" json:"oauth" yaml:"oauth"`
	Expansion    ExpansionConfig    `koanf:"expansion" json:"expansion" yaml:"expansion"`
}

// InfoConfig is the document info block.
type InfoConfig struct {
	Title          string         `koanf:"title" json:"title" yaml:"title"`
	Description    string         `koanf:"description" json:"description" yaml:"description"`
	TermsOfService string         `koanf:"termsofservice" json:"termsofservice" yaml:"termsofservice" validate:"omitempty,url"`
	Summary        string         `koanf:"summary" json:"summary" yaml:"summary"`
	Version        string         `koanf:"version" json:"version" yaml:"version"`
	Contact        ContactConfig  `koanf:"contact" json:"contact" yaml:"contact"`
	License        LicenseConfig  `koanf:"license" json:"license" yaml:"license"`
	Extensions     map[string]any `koanf:"extensions" json:"extensions" yaml:"extensions"`
}

// ContactConfig is the document maintainer.
type ContactConfig struct {
	Name  string `koanf:"name" json:"name" yaml:"name"`
	URL   string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Email string `koanf:"email" json:"email" yaml:"email" validate:"omitempty,email"`
}

// LicenseConfig is the document license.
type LicenseConfig struct {
	Name       string `koanf:"name" json:"name" yaml:"name"`
	URL        string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Identifier string `koanf:"identifier" json:"identifier" yaml:"identifier"`
}

// ExternalDocsConfig links to documentation outside the generated document.
type ExternalDocsConfig struct {
	Description string `koanf:"description" json:"description" yaml:"description"`
	URL         string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
}

// OAuth2 grant types that produce a security scheme.
const (
	GrantPassword          = "password"
	GrantAuthorizationCode = "authorization_code"
)

// OAuthConfig wires an OAuth2 security scheme into the document.
type OAuthConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// GrantType defaults to password.
	GrantType        string   `koanf:"granttype" json:"granttype" yaml:"granttype" validate:"omitempty,oneof=password authorization_code"`
	TokenURL         string   `koanf:"tokenurl" json:"tokenurl" yaml:"tokenurl" validate:"required_if=Enabled true,omitempty,url"`
	AuthorizationURL string   `koanf:"authorizationurl" json:"authorizationurl" yaml:"authorizationurl" validate:"omitempty,url"`
	ClientID         string   `koanf:"clientid" json:"clientid" yaml:"clientid"`
	ClientSecret     string   `koanf:"clientsecret" json:"-" yaml:"-"`
	Scopes           []string `koanf:"scopes" json:"scopes" yaml:"scopes"`
}

// ExpansionConfig tunes request type expansion.
type ExpansionConfig struct {
	MaxDepth int `koanf:"maxdepth" json:"maxdepth" yaml:"maxdepth" validate:"min=1"`
	// IgnoredTags drops attributes carrying any of these struct tag keys.
	IgnoredTags []string `koanf:"ignoredtags" json:"ignoredtags" yaml:"ignoredtags"`
}

// GatewayConfig enables aggregation of downstream service documents.
type GatewayConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Prefix is the common prefix of all routes, e.g. /api.
	Prefix string `koanf:"prefix" json:"prefix" yaml:"prefix"`
	// ServiceIDRegex selects the routes whose documents are aggregated. Empty selects all.
	ServiceIDRegex string          `koanf:"serviceidregex" json:"serviceidregex" yaml:"serviceidregex"`
	Routes         []RouteConfig   `koanf:"routes" json:"routes" yaml:"routes" validate:"dive"`
	Timeout        time.Duration   `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Retries        int             `koanf:"retries" json:"retries" yaml:"retries" validate:"min=0"`
	RateLimit      RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
}

// RouteConfig is one downstream service behind the gateway.
type RouteConfig struct {
	ID string `koanf:"id" json:"id" yaml:"id" validate:"required"`
	// Path is the route predicate, e.g. /api/users/**.
	Path string `koanf:"path" json:"path" yaml:"path" validate:"required,startswith=/"`
	// URI is the downstream base URL the document is fetched from.
	URI string `koanf:"uri" json:"uri" yaml:"uri" validate:"required,url"`
}

// RateLimitConfig limits document proxy requests per client IP. A zero rate disables it.
type RateLimitConfig struct {
	Rate  float64 `koanf:"rate" json:"rate" yaml:"rate" validate:"min=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"min=0"`
}

// Telemetry export protocols and the local development endpoint.
const (
	ProtocolHTTP   = "http"
	ProtocolGRPC   = "grpc"
	EndpointStdout = "stdout"
)

// ObservabilityConfig exports traces and metrics through OpenTelemetry.
// When Enabled is false every provider is a no-op.
type ObservabilityConfig struct {
	Enabled bool                `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Trace   TraceExportConfig   `koanf:"trace" json:"trace" yaml:"trace"`
	Metrics MetricsExportConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// TraceExportConfig configures the span exporter.
type TraceExportConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Endpoint is host:port or a URL for OTLP, or "stdout".
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	// Protocol is shared by the metrics exporter.
	Protocol   string            `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"oneof=http grpc"`
	Insecure   bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers    map[string]string `koanf:"headers" json:"-" yaml:"-"`
	SampleRate float64           `koanf:"samplerate" json:"samplerate" yaml:"samplerate" validate:"min=0,max=1"`
}

// MetricsExportConfig configures the periodic metric exporter.
type MetricsExportConfig struct {
	Enabled  bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" validate:"gt=0"`
}
