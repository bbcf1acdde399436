package config

import "time"

// Config holds runtime settings for the CloudPool CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - AccessToken / RefreshToken: credentials from a previous login. An
//     empty access token is prompted for when a command needs one.
//   - RequestTimeout: deadline for one command's RPCs.
//   - MaxMessageSize: largest gRPC message sent or received, in bytes.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	RefreshToken       string
	RequestTimeout     time.Duration
	MaxMessageSize     int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Minute
	c.MaxMessageSize = 1 << 30
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
