package config

import "time"

// Config holds runtime settings for the accountkeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the account server gRPC endpoint.
//   - SessionFile: SQLite file keeping the logged-in session between runs.
//   - RequestTimeout: deadline applied to every call to the server.
//   - OnlineCheckInterval: how often the CLI probes server reachability.
type Config struct {
	ServerEndpointAddr  string
	SessionFile         string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SessionFile = "session.db"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
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
