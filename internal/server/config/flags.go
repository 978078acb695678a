package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/drivekeeper/internal/flagx"
)

// parseFlags overrides selected fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-s string     token HMAC secret key
//	-b string     S3 bucket name
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-i duration   purge interval (e.g., "1m")
//	-r string     Redis address for the purge lock
//	-l string     log level
//
// Args are first filtered with flagx.FilterArgs so that -c/-config and flags
// of other components do not trip the parser.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-b", "-e", "-i", "-r", "-l"})

	fs := flag.NewFlagSet("drivekeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.DurationVar(&config.PurgeInterval, "i", config.PurgeInterval, "purge interval")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
