package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/aikea/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   REST bind address (e.g., ":8080")
//	-m string   storage mode: remote or local
//	-u string   bucket base URL
//	-t string   bucket bearer token
//	-x string   curl binary
//	-r int      request timeout, seconds
//	-p int      probe timeout, seconds
//	-d string   PostgreSQL DSN (local mode)
//	-f string   upload directory (local mode, disk backend)
//	-o string   blob backend: disk or s3
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-ak string  S3 access key
//	-sk string  S3 secret key
//	-s string   API JWT secret
//	-l string   log file
//	-debug      verbose logging
//
// Arguments not listed are dropped with flagx.FilterArgs first so the
// -c/-config flag handled by parseJson does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-u", "-t", "-x", "-r", "-p", "-d", "-f", "-o",
		"-b", "-g", "-e", "-ak", "-sk", "-s", "-l", "-debug",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.Mode, "m", config.Mode, "storage mode (remote|local)")
	fs.StringVar(&config.BucketBaseURL, "u", config.BucketBaseURL, "bucket base URL")
	fs.StringVar(&config.BucketToken, "t", config.BucketToken, "bucket bearer token")
	fs.StringVar(&config.CurlPath, "x", config.CurlPath, "curl binary")

	requestTimeout := fs.Int("r", int(config.RequestTimeout.Seconds()), "request timeout (in seconds)")
	probeTimeout := fs.Int("p", int(config.ProbeTimeout.Seconds()), "probe timeout (in seconds)")

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload directory")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend (disk|s3)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "ak", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "sk", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.APISecretKey, "s", config.APISecretKey, "API JWT secret")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	config.ProbeTimeout = time.Duration(*probeTimeout) * time.Second
}
