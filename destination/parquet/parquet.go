package parquet

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/destination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/goccy/go-json"
	pqgo "github.com/parquet-go/parquet-go"
)

const versionFile = "_activated_version"

// row is the file layout; the record itself is kept as JSON so that schema
// changes of the API never invalidate an open file
type row struct {
	Stream      string    `parquet:"_stream"`
	PrimaryKey  string    `parquet:"_primary_key"`
	Version     int64     `parquet:"_version"`
	ExtractedAt time.Time `parquet:"_time_extracted,timestamp(millisecond)"`
	Data        string    `parquet:"_data"`
}

type Parquet struct {
	config   *Config
	stream   *types.ConfiguredStream
	basePath string
	uploader *manager.Uploader
	s3Client *s3.Client

	file     *os.File
	writer   *pqgo.GenericWriter[row]
	fileName string
	rows     int
}

func (p *Parquet) GetConfigRef() destination.Config {
	p.config = &Config{}
	return p.config
}

func (p *Parquet) Spec() any {
	return Config{}
}

func (p *Parquet) Type() string {
	return string(types.Parquet)
}

// setup s3 client if a bucket is configured
func (p *Parquet) initS3Writer(ctx context.Context) error {
	if p.config.Bucket == "" {
		return nil
	}

	options := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(p.config.Region)}
	if p.config.AccessKey != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.config.AccessKey, p.config.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %s", err)
	}

	p.s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.config.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(p.config.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	p.uploader = manager.NewUploader(p.s3Client)
	return nil
}

// Check validates the local path and the S3 bucket if configured
func (p *Parquet) Check(ctx context.Context) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(p.config.Path, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create local path: %s", err)
	}

	if err := p.initS3Writer(ctx); err != nil {
		return err
	}
	if p.s3Client != nil {
		if _, err := p.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.config.Bucket)}); err != nil {
			return fmt.Errorf("failed to validate S3 bucket[%s]: %s", p.config.Bucket, err)
		}
	}
	return nil
}

// Setup creates the stream directory and writes the announced schema next to the data files
func (p *Parquet) Setup(ctx context.Context, stream *types.ConfiguredStream) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	p.stream = stream
	p.basePath = filepath.Join(p.config.Path, stream.ID())
	if err := os.MkdirAll(p.basePath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories[%s]: %s", p.basePath, err)
	}

	if err := p.initS3Writer(ctx); err != nil {
		return err
	}

	descriptor := stream.GetStream()
	schema, err := json.MarshalIndent(map[string]any{
		"stream":              stream.ID(),
		"schema":              descriptor.Schema,
		"key_properties":      descriptor.PrimaryKey.Array(),
		"bookmark_properties": utils.Ternary(descriptor.CursorField == "", []string{}, []string{descriptor.CursorField}),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %s", err)
	}
	return os.WriteFile(filepath.Join(p.basePath, "schema.json"), schema, 0o600)
}

func (p *Parquet) Write(ctx context.Context, records []types.RawRecord) error {
	rows := make([]row, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %s", err)
		}

		key, err := utils.GetKeysHash(record.Data, p.stream.GetStream().PrimaryKey.Array()...)
		if err != nil {
			return err
		}

		rows = append(rows, row{
			Stream:      record.Stream,
			PrimaryKey:  key,
			Version:     record.Version,
			ExtractedAt: record.ExtractedAt.UTC(),
			Data:        string(data),
		})
	}

	for len(rows) > 0 {
		if p.writer == nil {
			if err := p.createNewFile(); err != nil {
				return err
			}
		}

		batch := rows[:min(len(rows), p.config.MaxRowsPerFile-p.rows)]
		if _, err := p.writer.Write(batch); err != nil {
			return fmt.Errorf("failed to write rows: %s", err)
		}
		p.rows += len(batch)
		rows = rows[len(batch):]

		if p.rows >= p.config.MaxRowsPerFile {
			if err := p.rotate(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// ActivateVersion closes the open file and records version as the live record set
func (p *Parquet) ActivateVersion(ctx context.Context, version int64) error {
	if err := p.rotate(ctx); err != nil {
		return err
	}

	localPath := filepath.Join(p.basePath, versionFile)
	if err := os.WriteFile(localPath, []byte(strconv.FormatInt(version, 10)), 0o600); err != nil {
		return fmt.Errorf("failed to write version marker: %s", err)
	}
	return p.upload(ctx, localPath, versionFile)
}

// Flush closes the open file, a parquet file is only readable once its footer is written
func (p *Parquet) Flush(ctx context.Context) error {
	return p.rotate(ctx)
}

func (p *Parquet) Close(ctx context.Context) error {
	return p.rotate(ctx)
}

func (p *Parquet) createNewFile() error {
	p.fileName = utils.TimestampedFileName(constants.ParquetFileExt)
	file, err := os.Create(filepath.Join(p.basePath, p.fileName))
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %s", err)
	}

	p.file = file
	p.writer = pqgo.NewGenericWriter[row](file, pqgo.Compression(p.config.codec()))
	p.rows = 0
	return nil
}

// rotate finishes the open file and uploads it; empty files are removed
func (p *Parquet) rotate(ctx context.Context) error {
	if p.writer == nil {
		return nil
	}

	localPath := filepath.Join(p.basePath, p.fileName)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %s", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %s", err)
	}

	rows, fileName := p.rows, p.fileName
	p.writer, p.file, p.fileName, p.rows = nil, nil, "", 0

	if rows == 0 {
		logger.Debugf("removing empty parquet file %s", localPath)
		return os.Remove(localPath)
	}

	logger.Infof("finished parquet file %s with %d rows", localPath, rows)
	return p.upload(ctx, localPath, fileName)
}

func (p *Parquet) upload(ctx context.Context, localPath, fileName string) error {
	if p.uploader == nil {
		return nil
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file for upload: %s", err)
	}
	defer file.Close()

	key := path.Join(p.config.Prefix, p.stream.ID(), fileName)
	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("failed to upload %s to S3: %s", key, err)
	}

	logger.Infof("uploaded %s to s3://%s/%s", fileName, p.config.Bucket, key)
	return nil
}

func init() {
	destination.RegisteredWriters[types.Parquet] = func() destination.Writer {
		return new(Parquet)
	}
}
