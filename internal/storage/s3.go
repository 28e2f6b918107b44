package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archive stores artifacts in an S3-compatible bucket (AWS S3, MinIO, etc.).
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Archive = (*S3Archive)(nil)

type S3Options struct {
	Client *s3.Client
	Bucket string
	Prefix string // optional key prefix, e.g. "fusionator/"
}

func NewS3Archive(opts S3Options) *S3Archive {
	return &S3Archive{
		client: opts.Client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}
}

// S3ClientOptions configures NewS3Client. Empty fields fall back to the
// default AWS credential and region chain.
type S3ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func NewS3Client(ctx context.Context, opts S3ClientOptions) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Archive) objectKey(key string) string {
	if s.prefix != "" {
		return s.prefix + key
	}
	return key
}

func (s *S3Archive) Put(ctx context.Context, name string, r io.Reader) (Object, error) {
	// Spool to a temp file first to compute the digest and get a seekable body.
	tmpFile, err := os.CreateTemp("", "s3-artifact-*")
	if err != nil {
		return Object{}, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmpFile, h), r)
	if err != nil {
		return Object{}, fmt.Errorf("write tmp artifact: %w", err)
	}
	hexDigest := hex.EncodeToString(h.Sum(nil))
	obj := Object{
		Name:   name,
		Digest: "sha256:" + hexDigest,
		Size:   n,
		Key:    digestKey(hexDigest),
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return Object{}, fmt.Errorf("seek tmp file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(obj.Key)),
		Body:          tmpFile,
		ContentLength: aws.Int64(n),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      map[string]string{"original-name": name},
	})
	if err != nil {
		return Object{}, fmt.Errorf("s3 put: %w", err)
	}
	return obj, nil
}

func (s *S3Archive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	return resp.Body, nil
}
