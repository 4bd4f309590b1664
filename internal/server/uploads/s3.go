package uploads

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notescan/internal/common"
	sc "github.com/dmitrijs2005/notescan/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Adapter stores scan documents in an S3-compatible bucket (MinIO in dev).
type S3Adapter struct {
	config *sc.Config
}

func NewS3Adapter(config *sc.Config) *S3Adapter {
	return &S3Adapter{config: config}
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("scans/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (a *S3Adapter) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.S3RootUser,
			a.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Put writes the document under a fresh storage key and returns a presigned
// GET URL for retrieval. Any failure is wrapped in common.ErrUpload.
func (a *S3Adapter) Put(ctx context.Context, data []byte, fileName string, mimeType string) (StoredObject, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %v", common.ErrUpload, err)
	}

	bucket := a.config.S3Bucket
	key := randomStorageKey()

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:             &bucket,
		Key:                &key,
		Body:               bytes.NewReader(data),
		ContentType:        aws.String(mimeType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", fileName)),
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %v", common.ErrUpload, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(a.config.S3PresignExpiry))
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %v", common.ErrUpload, err)
	}

	return StoredObject{URL: req.URL, StorageID: key}, nil
}

// Delete removes the stored object. Callers treat this as best-effort.
func (a *S3Adapter) Delete(ctx context.Context, storageID string) error {
	client, err := a.getClient(ctx)
	if err != nil {
		return err
	}

	bucket := a.config.S3Bucket

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &storageID,
	})
	return err
}
