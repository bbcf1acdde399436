package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cloudpool/internal/flagx"
	"github.com/dmitrijs2005/cloudpool/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "90s" style
// strings or nanoseconds; sizes accept "100MiB" style strings.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	MaxMessageSize               string         `json:"max_message_size"`

	EncryptionEnabled *bool  `json:"encryption_enabled"`
	EncryptionSecret  string `json:"encryption_secret"`

	MinChunkSize     string `json:"min_chunk_size"`
	ProbeConcurrency int    `json:"probe_concurrency"`
	ChunkConcurrency int    `json:"chunk_concurrency"`

	HTTPTimeout  timex.Duration `json:"http_timeout"`
	HTTPRetryMax *int           `json:"http_retry_max"`

	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleTokenURL     string `json:"google_token_url"`
	GoogleAPIBase      string `json:"google_api_base"`
	GoogleUploadBase   string `json:"google_upload_base"`

	DropboxClientID     string `json:"dropbox_client_id"`
	DropboxClientSecret string `json:"dropbox_client_secret"`
	DropboxTokenURL     string `json:"dropbox_token_url"`
	DropboxAPIBase      string `json:"dropbox_api_base"`
	DropboxContentBase  string `json:"dropbox_content_base"`

	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3Quota        string `json:"s3_quota"`

	MetricsAddr *string `json:"metrics_addr"`
	LogLevel    string  `json:"log_level"`
	LogFormat   string  `json:"log_format"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.MaxMessageSize != "" {
		config.MaxMessageSize = int(mustParseSize(c.MaxMessageSize))
	}

	if c.EncryptionEnabled != nil {
		config.EncryptionEnabled = *c.EncryptionEnabled
	}
	setString(&config.EncryptionSecret, c.EncryptionSecret)

	if c.MinChunkSize != "" {
		config.MinChunkSize = mustParseSize(c.MinChunkSize)
	}
	if c.ProbeConcurrency > 0 {
		config.ProbeConcurrency = c.ProbeConcurrency
	}
	if c.ChunkConcurrency > 0 {
		config.ChunkConcurrency = c.ChunkConcurrency
	}

	if c.HTTPTimeout.Duration > 0 {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}
	if c.HTTPRetryMax != nil {
		config.HTTPRetryMax = *c.HTTPRetryMax
	}

	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleTokenURL, c.GoogleTokenURL)
	setString(&config.GoogleAPIBase, c.GoogleAPIBase)
	setString(&config.GoogleUploadBase, c.GoogleUploadBase)

	setString(&config.DropboxClientID, c.DropboxClientID)
	setString(&config.DropboxClientSecret, c.DropboxClientSecret)
	setString(&config.DropboxTokenURL, c.DropboxTokenURL)
	setString(&config.DropboxAPIBase, c.DropboxAPIBase)
	setString(&config.DropboxContentBase, c.DropboxContentBase)

	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3Quota != "" {
		config.S3QuotaBytes = mustParseSize(c.S3Quota)
	}

	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
