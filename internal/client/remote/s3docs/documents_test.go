package s3docs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string][]byte
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestCollaborator() (*Collaborator, *fakeObjects) {
	f := &fakeObjects{objects: map[string][]byte{}}
	return &Collaborator{api: f, bucket: "site-docs"}, f
}

func TestCreate_StoresJSONObject(t *testing.T) {
	c, f := newTestCollaborator()

	rec, err := c.Create(context.Background(), map[string]any{"id": "doc-1", "title": "Permit"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec["id"])

	raw, ok := f.objects["site-docs/documents/doc-1.json"]
	require.True(t, ok)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Permit", got["title"])
}

func TestCreate_MissingID(t *testing.T) {
	c, _ := newTestCollaborator()
	_, err := c.Create(context.Background(), map[string]any{"title": "Permit"})
	require.ErrorIs(t, err, common.ErrMissingID)
}

func TestUpdate_OverwritesAndDelete_Removes(t *testing.T) {
	c, f := newTestCollaborator()
	ctx := context.Background()

	_, err := c.Create(ctx, map[string]any{"id": "doc-1", "rev": 1.0})
	require.NoError(t, err)
	rec, err := c.Update(ctx, "doc-1", map[string]any{"rev": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec["id"])
	assert.JSONEq(t, `{"rev":2}`, string(f.objects["site-docs/documents/doc-1.json"]))

	require.NoError(t, c.Delete(ctx, "doc-1"))
	assert.Empty(t, f.objects)
}

func TestErrorsAreWrapped(t *testing.T) {
	c, f := newTestCollaborator()
	f.err = errors.New("bucket unreachable")

	_, err := c.Update(context.Background(), "doc-1", map[string]any{})
	require.ErrorIs(t, err, f.err)
	assert.Contains(t, err.Error(), "put document doc-1")

	err = c.Delete(context.Background(), "doc-1")
	require.ErrorIs(t, err, f.err)
}

func TestNew_UsesConfig(t *testing.T) {
	c, err := New(context.Background(), Config{
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "site-docs",
	})
	require.NoError(t, err)
	assert.Equal(t, "site-docs", c.bucket)
	assert.IsType(t, &s3.Client{}, c.api)
}

func TestNew_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}
