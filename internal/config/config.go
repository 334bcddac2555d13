// Package config handles configuration loading from environment and files.
// The security profile is resolved exactly once here, from SEC_PROFILE, and
// carried on the returned Config; no other package reads the environment for
// it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

// Config holds all configuration for the bench services.
type Config struct {
	// Service identification
	Service   string `mapstructure:"service"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Profile is the resolved security profile. ProfileInput preserves the
	// raw SEC_PROFILE value and ProfileRecognized whether it parsed; an
	// unrecognized value coerces to S0, which mains log loudly since a typo
	// here silently disables all security.
	Profile           secprofile.Profile `mapstructure:"-"`
	ProfileInput      string             `mapstructure:"-"`
	ProfileRecognized bool               `mapstructure:"-"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// TLS certificate material paths
	TLS TLSConfig `mapstructure:"tls"`

	// JWT validation configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Upstream addresses used by the gateway's cluster table
	Upstreams UpstreamConfig `mapstructure:"upstreams"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP/gRPC listener configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TLSConfig holds filesystem paths for the three certificate identities:
// the listener's server certificate (PKCS#12), the single CA trust root
// (PEM) and the client certificate presented on outbound mTLS (PEM).
// Material is loaded once at startup and never reloaded.
type TLSConfig struct {
	ServerCertPath     string `mapstructure:"server_cert_path"`
	ServerCertPassword string `mapstructure:"server_cert_password"`
	CACertPath         string `mapstructure:"ca_cert_path"`
	ClientCertPath     string `mapstructure:"client_cert_path"`
	ClientCertKeyPath  string `mapstructure:"client_cert_key_path"`
	SigningCertPath    string `mapstructure:"signing_cert_path"`
	SigningCertPwd     string `mapstructure:"signing_cert_password"`
}

// JWTConfig holds bearer-token validation configuration.
type JWTConfig struct {
	Authority      string        `mapstructure:"authority"`
	JWKSTimeout    time.Duration `mapstructure:"jwks_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// UpstreamConfig holds the gateway's backend cluster addresses.
type UpstreamConfig struct {
	OrdersREST    string `mapstructure:"orders_rest"`
	InventoryREST string `mapstructure:"inventory_rest"`
	OrdersGRPC    string `mapstructure:"orders_grpc"`
}

// TelemetryConfig holds OTLP tracing configuration.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load loads configuration for the named service from environment variables
// and an optional config file. The default server certificate location
// follows the service name (/certs/servers/<service>/<service>.pfx).
func Load(service, configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, service)

	// Environment variables
	v.SetEnvPrefix("BENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bench")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Service = service
	cfg.ProfileInput = os.Getenv(secprofile.EnvVar)
	cfg.Profile, cfg.ProfileRecognized = secprofile.TryParse(cfg.ProfileInput)

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultPort(service))
	v.SetDefault("server.grpc_port", 9091)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Certificate defaults
	v.SetDefault("tls.server_cert_path", fmt.Sprintf("/certs/servers/%s/%s.pfx", service, service))
	v.SetDefault("tls.server_cert_password", "")
	v.SetDefault("tls.ca_cert_path", "/certs/ca/ca.crt.pem")
	v.SetDefault("tls.client_cert_path", "")
	v.SetDefault("tls.client_cert_key_path", "")
	v.SetDefault("tls.signing_cert_path", "")
	v.SetDefault("tls.signing_cert_password", "")

	// JWT defaults
	v.SetDefault("jwt.authority", "https://authserver:5001")
	v.SetDefault("jwt.jwks_timeout", 5*time.Second)
	v.SetDefault("jwt.request_timeout", 10*time.Second)

	// Upstream defaults (gateway cluster table)
	v.SetDefault("upstreams.orders_rest", "orderservice:8081")
	v.SetDefault("upstreams.inventory_rest", "inventoryservice:8082")
	v.SetDefault("upstreams.orders_grpc", "orderservice:9091")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_rate", 1.0)
}

func defaultPort(service string) int {
	switch service {
	case "gateway":
		return 8080
	case "authserver":
		return 5001
	case "orderservice":
		return 8081
	case "inventoryservice":
		return 8082
	case "resultsservice":
		return 8083
	default:
		return 8080
	}
}

// Addr returns the HTTP listener address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr returns the gRPC listener address.
func (c *ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// AuthorityTrimmed returns the token issuer base URL without a trailing slash.
func (c *JWTConfig) AuthorityTrimmed() string {
	return strings.TrimRight(c.Authority, "/")
}
