package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// S3Store is the object-store-backed Blob Store of spec.md §4.1/§6: keys
// are '/'-joined names under Bucket/Prefix. PutObject on S3-compatible
// stores already replaces an object's content atomically from the
// perspective of any reader, so no local temp-file staging is needed.
// Write always issues a single PutObject; a random suffix (via
// google/uuid) is only used for the staging keys of Stage/Commit.
type S3Store struct {
	Client   *s3.Client
	Bucket   string
	Prefix   string
	partSize int64 // set by NewS3Store; Write does not consult it
}

// NewS3Store loads the default AWS credential chain (env vars, shared
// config, EC2/ECS role) via config.LoadDefaultConfig, matching the
// standard aws-sdk-go-v2 bootstrap used throughout the ecosystem.
func NewS3Store(ctx context.Context, bucket, prefix string, optFns ...func(*awsconfig.LoadOptions) error) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, xerrors.Errorf("load aws config: %w", err)
	}
	return &S3Store{
		Client:   s3.NewFromConfig(cfg),
		Bucket:   bucket,
		Prefix:   strings.Trim(prefix, "/"),
		partSize: 8 << 20,
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	if s.Prefix == "" {
		return key
	}
	return s.Prefix + "/" + strings.TrimPrefix(key, "/")
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundErr(err) {
		return false, nil
	}
	return false, xerrors.Errorf("head %s: %w", key, err)
}

func (s *S3Store) Read(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.OpenRead(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, xerrors.Errorf("read %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *S3Store) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFoundErr(err) {
			return nil, ErrNotFound
		}
		return nil, xerrors.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

// Write uploads data to key. Objects are a single PutObject call
// regardless of size: S3 PutObject is already atomic with respect to
// concurrent readers (spec.md §4.1's torn-read guarantee), so the
// temp-key staging with a uuid suffix is reserved for backends that lack
// that guarantee (see Stage/Commit below).
func (s *S3Store) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return xerrors.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Stage uploads data to a randomized temporary key under the same prefix
// and returns it, for callers that need to validate a write (e.g. a
// round-trip decode check) before it becomes visible at the real key.
// Commit then performs the equivalent of a rename via CopyObject +
// delete of the staging key.
func (s *S3Store) Stage(ctx context.Context, data []byte) (tempKey string, err error) {
	tempKey = ".tmp/" + uuid.NewString()
	if err := s.Write(ctx, tempKey, data); err != nil {
		return "", err
	}
	return tempKey, nil
}

// Commit finalizes a Stage'd write by copying the staging object onto
// key and removing the staging object.
func (s *S3Store) Commit(ctx context.Context, tempKey, key string) error {
	src := s.Bucket + "/" + s.objectKey(tempKey)
	if _, err := s.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.Bucket),
		Key:        aws.String(s.objectKey(key)),
		CopySource: aws.String(src),
	}); err != nil {
		return xerrors.Errorf("commit %s: %w", key, err)
	}
	return s.Remove(ctx, tempKey)
}

// Remove deletes key. Object stores have no directories, so a
// directory-like key (one with children) is removed by listing every
// object under its prefix and batch-deleting them; a leaf key is removed
// with a single DeleteObject.
func (s *S3Store) Remove(ctx context.Context, key string) error {
	p := s.objectKey(key)
	listPrefix := p
	if listPrefix != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}

	var toDelete []types.ObjectIdentifier
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return xerrors.Errorf("list for remove %s: %w", key, err)
		}
		for _, obj := range page.Contents {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	if len(toDelete) == 0 {
		_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(p),
		})
		if err != nil && !isNotFoundErr(err) {
			return xerrors.Errorf("delete %s: %w", key, err)
		}
		return nil
	}

	const batchSize = 1000
	for start := 0; start < len(toDelete); start += batchSize {
		end := start + batchSize
		if end > len(toDelete) {
			end = len(toDelete)
		}
		_, err := s.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &types.Delete{Objects: toDelete[start:end]},
		})
		if err != nil {
			return xerrors.Errorf("batch delete under %s: %w", key, err)
		}
	}
	return nil
}

// List returns the immediate children of prefix: object keys one path
// segment below it, computed via a delimited ListObjectsV2 call so
// "directories" fall out of CommonPrefixes without a client-side walk.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	p := s.objectKey(prefix)
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	out := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.Bucket),
		Prefix:    aws.String(p),
		Delimiter: aws.String("/"),
	}
	var children []string
	paginator := s3.NewListObjectsV2Paginator(s.Client, out)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, xerrors.Errorf("list %s: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), p), "/")
			children = append(children, name)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), p)
			if name == "" {
				continue
			}
			children = append(children, name)
		}
	}
	return children, nil
}

func (s *S3Store) Relative(parent, child string) string {
	if parent == "" {
		return child
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}

func isNotFoundErr(err error) bool {
	var nsk *types.NoSuchKey
	if xerrors.As(err, &nsk) {
		return true
	}
	var notFound *types.NotFound
	return xerrors.As(err, &notFound)
}
