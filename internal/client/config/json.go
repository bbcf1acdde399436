package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cloudpool/internal/flagx"
	"github.com/dmitrijs2005/cloudpool/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as
// a string like "90s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token"`
	RefreshToken       string         `json:"refresh_token"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	MaxMessageSize     int            `json:"max_message_size"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Fields missing from the file keep their value. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.RefreshToken != "" {
		cfg.RefreshToken = jc.RefreshToken
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxMessageSize > 0 {
		cfg.MaxMessageSize = jc.MaxMessageSize
	}
}
