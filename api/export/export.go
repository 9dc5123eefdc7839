// Package export publishes chart snapshots to S3-compatible object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/tornado/api/metrics"
	"github.com/malbeclabs/tornado/api/store"
)

// PutObjectAPI is the subset of the S3 client the exporter uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Logger *slog.Logger
	Client PutObjectAPI
	Bucket string
	Prefix string
	Clock  clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("client is required")
	}
	if cfg.Bucket == "" {
		return errors.New("bucket is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Exporter struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export config: %w", err)
	}
	return &Exporter{log: cfg.Logger, cfg: cfg}, nil
}

// NewS3Client builds an S3 client from the default AWS configuration chain.
// A non-empty endpoint targets an S3-compatible service with path-style
// addressing.
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Snapshot is the document written for an exported chart.
type Snapshot struct {
	Chart      *store.ChartRecord `json:"chart"`
	ExportedAt string             `json:"exported_at"`
}

// Export writes a snapshot of rec and returns its object key,
// <prefix>/<dataset id>/<chart id>-<unix seconds>.json.
func (e *Exporter) Export(ctx context.Context, rec *store.ChartRecord) (string, error) {
	now := e.cfg.Clock.Now().UTC()
	body, err := json.Marshal(Snapshot{Chart: rec, ExportedAt: now.Format("2006-01-02T15:04:05Z")})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := path.Join(e.cfg.Prefix, rec.DataSetID.String(), fmt.Sprintf("%s-%d.json", rec.ID, now.Unix()))
	_, err = e.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"chart-type": string(rec.Type),
			"chart-mode": string(rec.Mode),
		},
	})
	metrics.RecordExport(len(body), err)
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	e.log.Info("export: chart exported", "chart_id", rec.ID, "bucket", e.cfg.Bucket, "key", key, "bytes", len(body))
	return key, nil
}
