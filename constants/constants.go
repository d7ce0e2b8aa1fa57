package constants

import (
	"errors"
	"time"
)

const (
	SourceType            = "intercom"
	APIVersion            = "2.0"
	DefaultBaseURL        = "https://api.intercom.io"
	DefaultRequestTimeout = 300 * time.Second
	MaxPageSize           = 150
	DefaultRetryCount     = 7
	DefaultRateLimit      = 1000 // requests per RateLimitWindow
	RateLimitWindow       = time.Minute
	DefaultBatchSize      = 10000

	RecordHashField  = "_sdc_record_hash"
	LastProcessedKey = "last_processed"
	ParquetFileExt   = "parquet"
)

// viper keys
const (
	ConfigFolder = "CONFIG_FOLDER"
	StatePath    = "STATE_PATH"
	StreamsPath  = "STREAMS_PATH"
	SyncID       = "SYNC_ID"
	AccessToken  = "INTERCOM_ACCESS_TOKEN"
)

var (
	ErrNonRetryable      = errors.New("non-retryable error")
	ErrMissingPrimaryKey = errors.New("record is missing a primary key field")
	ErrIteratorConsumed  = errors.New("record sequence already consumed")
)
