package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/flagx"
	"github.com/docker/go-units"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x          enable chunk encryption (-x=false disables)
//	-k string   chunk encryption secret
//	-m string   minimum chunk size, e.g. "100MiB"
//	-q int      quota probe concurrency
//	-w int      chunk upload concurrency
//	-e string   S3 base endpoint
//	-g string   S3 region
//	-b string   per-bucket quota, e.g. "10GiB"
//	-M string   metrics listen address ("" disables)
//	-l string   log level
//
// Invalid values panic, as a misconfigured server must not start.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-s", "-t", "-r", "-k", "-m", "-q", "-w", "-e", "-g", "-b", "-M", "-l"},
		"-x")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.BoolVar(&config.EncryptionEnabled, "x", config.EncryptionEnabled, "encrypt stored chunks")
	fs.StringVar(&config.EncryptionSecret, "k", config.EncryptionSecret, "chunk encryption secret")

	minChunk := fs.String("m", units.BytesSize(float64(config.MinChunkSize)), "minimum chunk size")
	fs.IntVar(&config.ProbeConcurrency, "q", config.ProbeConcurrency, "quota probe concurrency")
	fs.IntVar(&config.ChunkConcurrency, "w", config.ChunkConcurrency, "chunk upload concurrency")

	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	bucketQuota := fs.String("b", units.BytesSize(float64(config.S3QuotaBytes)), "per-bucket quota")

	fs.StringVar(&config.MetricsAddr, "M", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshValidity) * time.Minute
	config.MinChunkSize = mustParseSize(*minChunk)
	config.S3QuotaBytes = mustParseSize(*bucketQuota)
}

// mustParseSize accepts binary sizes such as "100MiB", "1.5g" or a plain
// byte count.
func mustParseSize(s string) int64 {
	n, err := units.RAMInBytes(s)
	if err != nil {
		panic(err)
	}
	return n
}
