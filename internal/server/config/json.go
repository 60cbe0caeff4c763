package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/aikea/internal/flagx"
	"github.com/dmitrijs2005/aikea/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddr   string         `json:"endpoint_addr"`
	Mode           string         `json:"mode"`
	BucketBaseURL  string         `json:"bucket_base_url"`
	BucketToken    string         `json:"bucket_token"`
	CurlPath       string         `json:"curl_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	ProbeTimeout   timex.Duration `json:"probe_timeout"`
	DatabaseDSN    string         `json:"database_dsn"`
	UploadDir      string         `json:"upload_dir"`
	BlobBackend    string         `json:"blob_backend"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	APISecretKey   string         `json:"api_secret_key"`
	LogFile        string         `json:"log_file"`
	Debug          bool           `json:"debug"`
}

// parseJson loads the file named by -c or -config into config. Only keys
// present in the file replace the current values. Without the flag nothing
// is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := fromConfig(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.Mode = c.Mode
	config.BucketBaseURL = c.BucketBaseURL
	config.BucketToken = c.BucketToken
	config.CurlPath = c.CurlPath
	config.RequestTimeout = c.RequestTimeout.Duration
	config.ProbeTimeout = c.ProbeTimeout.Duration
	config.DatabaseDSN = c.DatabaseDSN
	config.UploadDir = c.UploadDir
	config.BlobBackend = c.BlobBackend
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.APISecretKey = c.APISecretKey
	config.LogFile = c.LogFile
	config.Debug = c.Debug
}

func fromConfig(config *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddr:   config.EndpointAddr,
		Mode:           config.Mode,
		BucketBaseURL:  config.BucketBaseURL,
		BucketToken:    config.BucketToken,
		CurlPath:       config.CurlPath,
		RequestTimeout: timex.Duration{Duration: config.RequestTimeout},
		ProbeTimeout:   timex.Duration{Duration: config.ProbeTimeout},
		DatabaseDSN:    config.DatabaseDSN,
		UploadDir:      config.UploadDir,
		BlobBackend:    config.BlobBackend,
		S3Bucket:       config.S3Bucket,
		S3Region:       config.S3Region,
		S3BaseEndpoint: config.S3BaseEndpoint,
		S3AccessKey:    config.S3AccessKey,
		S3SecretKey:    config.S3SecretKey,
		APISecretKey:   config.APISecretKey,
		LogFile:        config.LogFile,
		Debug:          config.Debug,
	}
}
