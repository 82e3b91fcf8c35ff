package routeconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/navkit/pkg/router"
)

// ErrNoS3Client is returned when an s3:// location is opened without a
// client.
var ErrNoS3Client = errors.New("routeconfig: s3 location requires a client")

// Source supplies the raw bytes of a route file.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	String() string
}

// ObjectGetter is the subset of the S3 API used to fetch route files.
// *s3.Client satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectGetter = (*s3.Client)(nil)

// FileSource reads a route file from the local filesystem.
type FileSource struct {
	Path string
}

// Read implements Source.
func (s FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("routeconfig: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("routeconfig: read %s: %w", s.Path, err)
	}
	return data, nil
}

func (s FileSource) String() string { return s.Path }

// S3Source reads a route file from an S3 object.
type S3Source struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// Read implements Source.
func (s S3Source) Read(ctx context.Context) ([]byte, error) {
	if s.Client == nil {
		return nil, ErrNoS3Client
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("routeconfig: get %s: %w", s, err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, fmt.Errorf("routeconfig: read %s: %w", s, err)
	}
	return data, nil
}

func (s S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// IsS3 reports whether location names an S3 object.
func IsS3(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseSource returns the Source for location: an s3://bucket/key URL or
// a local path. client may be nil for local paths.
func ParseSource(location string, client ObjectGetter) (Source, error) {
	if !IsS3(location) {
		if location == "" {
			return nil, errors.New("routeconfig: empty route file location")
		}
		return FileSource{Path: location}, nil
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("routeconfig: invalid s3 location %q, want s3://bucket/key", location)
	}
	if client == nil {
		return nil, ErrNoS3Client
	}
	return S3Source{Client: client, Bucket: bucket, Key: key}, nil
}

// Load reads and decodes the route file at src.
func Load(ctx context.Context, src Source, opts ...Option) ([]router.RouteDefinition, error) {
	data, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	defs, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return defs, nil
}
