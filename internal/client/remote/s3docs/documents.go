// Package s3docs stores document payloads as JSON objects in an
// S3-compatible bucket.
package s3docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

const keyPrefix = "documents"

var loadDefaultAWSConfig = config.LoadDefaultConfig

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Collaborator implements remote.Collaborator for documents.
type Collaborator struct {
	api    objectAPI
	bucket string
}

func New(ctx context.Context, cfg Config) (*Collaborator, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return &Collaborator{api: client, bucket: cfg.Bucket}, nil
}

func objectKey(id string) string {
	return path.Join(keyPrefix, id+".json")
}

func (c *Collaborator) Create(ctx context.Context, data map[string]any) (models.Record, error) {
	id, _ := data["id"].(string)
	if id == "" {
		return nil, common.ErrMissingID
	}
	return c.put(ctx, id, data)
}

func (c *Collaborator) Update(ctx context.Context, id string, data map[string]any) (models.Record, error) {
	return c.put(ctx, id, data)
}

func (c *Collaborator) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (c *Collaborator) put(ctx context.Context, id string, data map[string]any) (models.Record, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(objectKey(id)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("put document %s: %w", id, err)
	}

	rec := make(models.Record, len(data)+1)
	for k, v := range data {
		rec[k] = v
	}
	rec["id"] = id
	return rec, nil
}
