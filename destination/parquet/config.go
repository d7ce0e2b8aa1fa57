package parquet

import (
	"fmt"

	"github.com/datazip-inc/olake-intercom/utils"
	pqgo "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

const DefaultMaxRowsPerFile = 1_000_000

type Config struct {
	Path      string `json:"local_path" validate:"required"` // Local file path (for local file system usage)
	Bucket    string `json:"s3_bucket,omitempty"`
	Region    string `json:"s3_region,omitempty"`
	AccessKey string `json:"s3_access_key,omitempty"`
	SecretKey string `json:"s3_secret_key,omitempty"`
	Prefix    string `json:"s3_path,omitempty"`
	// S3 endpoint for custom S3-compatible services (like MinIO)
	S3Endpoint string `json:"s3_endpoint,omitempty" validate:"omitempty,url"`

	Compression    string `json:"compression,omitempty"` // snappy (default), gzip, zstd, lz4, none
	MaxRowsPerFile int    `json:"max_rows_per_file,omitempty"`
}

var codecs = map[string]compress.Codec{
	"":             &pqgo.Snappy,
	"snappy":       &pqgo.Snappy,
	"gzip":         &pqgo.Gzip,
	"zstd":         &pqgo.Zstd,
	"lz4":          &pqgo.Lz4Raw,
	"none":         &pqgo.Uncompressed,
	"uncompressed": &pqgo.Uncompressed,
}

func (c *Config) Validate() error {
	if _, found := codecs[c.Compression]; !found {
		return fmt.Errorf("invalid compression codec: %s. Valid options are: snappy, gzip, zstd, lz4, none, uncompressed", c.Compression)
	}

	if c.MaxRowsPerFile < 0 {
		return fmt.Errorf("max_rows_per_file must be a positive value")
	}
	if c.MaxRowsPerFile == 0 {
		c.MaxRowsPerFile = DefaultMaxRowsPerFile
	}

	if c.Bucket != "" && c.Region == "" {
		return fmt.Errorf("s3_region is required when s3_bucket is set")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("s3_access_key and s3_secret_key must be provided together")
	}

	return utils.Validate(c)
}

func (c *Config) codec() compress.Codec {
	return codecs[c.Compression]
}
