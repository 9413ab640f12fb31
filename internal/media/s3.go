package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"chronovault/internal/chrono"
)

// S3API is the subset of *s3.Client the store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Presigner is satisfied by *s3.PresignClient.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps attachments in a bucket:
//
//	<prefix>content/<id>      (file bytes)
//	<prefix>meta/<id>.json    (chrono.MediaAsset without URL)
//
// Resolved assets carry a presigned GET URL valid for the configured expiry.
type S3Store struct {
	client    S3API
	uploader  Uploader
	presigner Presigner
	bucket    string
	prefix    string
	expiry    time.Duration
	clock     chrono.Clock
	ids       chrono.IDGenerator
}

// S3Options configures NewS3Store.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // non-empty for S3-compatible services; enables path-style addressing
	Expiry   time.Duration

	// AccessKeyID and SecretKey select static credentials. When empty the
	// default AWS credential chain is used.
	AccessKeyID string
	SecretKey   string
}

// NewS3Store builds a store from opts and the AWS shared configuration.
func NewS3Store(ctx context.Context, opts S3Options, clock chrono.Clock, ids chrono.IDGenerator) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 media store requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClients(client, manager.NewUploader(client), s3.NewPresignClient(client), opts, clock, ids), nil
}

// NewS3StoreWithClients wires a store from explicit clients.
func NewS3StoreWithClients(client S3API, uploader Uploader, presigner Presigner, opts S3Options, clock chrono.Clock, ids chrono.IDGenerator) *S3Store {
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	prefix := opts.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{
		client:    client,
		uploader:  uploader,
		presigner: presigner,
		bucket:    opts.Bucket,
		prefix:    prefix,
		expiry:    expiry,
		clock:     clock,
		ids:       ids,
	}
}

func (s *S3Store) contentKey(id string) string {
	return path.Join(s.prefix+"content", id)
}

func (s *S3Store) metaKey(id string) string {
	return path.Join(s.prefix+"meta", id+".json")
}

// Store uploads the content, then its metadata document.
func (s *S3Store) Store(ctx context.Context, r io.Reader, meta chrono.MediaMeta) (string, error) {
	id := newID(s.clock, s.ids)

	sum := newChecksumWriter()
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(id)),
		Body:   io.TeeReader(r, sum),
	}
	if meta.MimeType != "" {
		input.ContentType = aws.String(meta.MimeType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("uploading media %s: %w", id, err)
	}
	if meta.Size > 0 && sum.n != meta.Size {
		s.deleteKey(ctx, s.contentKey(id))
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", meta.Size, sum.n)
	}

	asset := newAsset(id, meta, sum.n, sum.Sum(), s.clock)
	b, err := json.Marshal(asset)
	if err != nil {
		s.deleteKey(ctx, s.contentKey(id))
		return "", fmt.Errorf("encoding media metadata: %w", err)
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metaKey(id)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.deleteKey(ctx, s.contentKey(id))
		return "", fmt.Errorf("uploading media metadata %s: %w", id, err)
	}
	return id, nil
}

// Resolve reads the metadata document and presigns a GET for the content.
func (s *S3Store) Resolve(ctx context.Context, id string) (*chrono.MediaAsset, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	asset, err := s.readMeta(ctx, s.metaKey(id))
	if err != nil {
		return nil, err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(id)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, fmt.Errorf("presigning media %s: %w", id, err)
	}
	asset.URL = req.URL
	return asset, nil
}

func (s *S3Store) readMeta(ctx context.Context, key string) (*chrono.MediaAsset, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, key)
		}
		return nil, fmt.Errorf("reading media metadata %s: %w", key, err)
	}
	defer out.Body.Close()

	var asset chrono.MediaAsset
	if err := json.NewDecoder(out.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding media metadata %s: %w", key, err)
	}
	return &asset, nil
}

// Open streams the stored bytes for id.
func (s *S3Store) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("reading media %s: %w", id, err)
	}
	return out.Body, nil
}

// Delete removes the metadata document and the content.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	if _, err := s.readMeta(ctx, s.metaKey(id)); err != nil {
		return err
	}
	if err := s.deleteKey(ctx, s.metaKey(id)); err != nil {
		return err
	}
	return s.deleteKey(ctx, s.contentKey(id))
}

func (s *S3Store) deleteKey(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// List pages through the metadata prefix. URLs are not presigned.
func (s *S3Store) List(ctx context.Context, filter chrono.MediaFilter) ([]*chrono.MediaAsset, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "meta/"),
	})

	var assets []*chrono.MediaAsset
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing media: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			a, err := s.readMeta(ctx, key)
			if err != nil {
				return nil, err
			}
			if matches(a, filter) {
				assets = append(assets, a)
			}
		}
	}
	return sortAndLimit(assets, filter.Limit), nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var (
	_ chrono.MediaStore = (*S3Store)(nil)
	_ Opener            = (*S3Store)(nil)
)
