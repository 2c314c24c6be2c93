package services

import (
	"context"
	"strings"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// DefaultMaxKeys is used when a request does not bound the page
const DefaultMaxKeys = 1000

// S3Client is the subset of minio.Client used for listing
type S3Client interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// S3Lister lists an S3-compatible bucket as a hierarchy.
// The last key of a full page is the marker for the next one (StartAfter).
type S3Lister struct {
	client S3Client
	bucket string
	logger *zap.Logger
}

// NewS3Lister connects to conn.Endpoint with static credentials, or anonymously when none are given
func NewS3Lister(conn Connection, logger *zap.Logger) (*S3Lister, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(conn.Endpoint, &minio.Options{
		Creds:      credentials.NewStaticV4(conn.AccessKey, conn.SecretKey, ""),
		Secure:     shouldUseSSL(conn.Endpoint),
		MaxRetries: 1,
	})
	if err != nil {
		return nil, err
	}
	return newS3Lister(client, conn.Container, logger), nil
}

func newS3Lister(client S3Client, bucket string, logger *zap.Logger) *S3Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Lister{client: client, bucket: bucket, logger: logger.With(zap.String("bucket", bucket))}
}

// ListHierarchy reads at most req.MaxResults keys directly under req.Prefix
func (l *S3Lister) ListHierarchy(ctx context.Context, req listing.ListRequest) (*listing.ListResponse, error) {
	maxKeys := int(req.MaxResults)
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	// Stops the listing goroutine once the page is full
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:       req.Prefix,
		Recursive:    false, // Non-recursive to get folders
		MaxKeys:      maxKeys,
		StartAfter:   req.Marker,
		WithMetadata: req.IncludeMetadata,
	}

	resp := &listing.ListResponse{}
	var lastKey string
	count := 0
	for obj := range l.client.ListObjects(ctx, l.bucket, opts) {
		if obj.Err != nil {
			return nil, classifyS3Error("ListHierarchy", l.bucket, obj.Err)
		}
		// The folder marker object of the prefix itself is not part of the listing
		if obj.Key == req.Prefix && strings.HasSuffix(obj.Key, listing.Delimiter) {
			continue
		}
		count++
		lastKey = obj.Key

		// Common prefixes and folder marker objects both end with the delimiter
		if strings.HasSuffix(obj.Key, listing.Delimiter) {
			resp.DirectoryPrefixes = append(resp.DirectoryPrefixes, obj.Key)
		} else {
			resp.Entries = append(resp.Entries, entryFromObjectInfo(obj))
		}

		if count >= maxKeys {
			break
		}
	}

	if count >= maxKeys {
		resp.NextMarker = lastKey
	}

	l.logger.Debug("Listed objects",
		zap.String("prefix", req.Prefix),
		zap.Int("objects", len(resp.Entries)),
		zap.Int("prefixes", len(resp.DirectoryPrefixes)),
		zap.Bool("more", resp.NextMarker != ""))
	return resp, nil
}

func entryFromObjectInfo(obj minio.ObjectInfo) listing.Entry {
	size := obj.Size
	modified := obj.LastModified
	props := &listing.Properties{
		ContentLength: &size,
		LastModified:  &modified,
	}
	if obj.ContentType != "" {
		contentType := obj.ContentType
		props.ContentType = &contentType
	}
	if obj.ETag != "" {
		etag := obj.ETag
		props.ETag = &etag
	}
	if obj.StorageClass != "" {
		class := obj.StorageClass
		props.AccessTier = &class
	}

	e := listing.Entry{Name: obj.Key, Properties: props}
	if obj.VersionID != "" {
		version := obj.VersionID
		e.VersionID = &version
	}
	// Keys are lowercased to match what Azure returns
	if len(obj.UserMetadata) > 0 {
		e.Metadata = make(map[string]string, len(obj.UserMetadata))
		for k, v := range obj.UserMetadata {
			e.Metadata[strings.ToLower(strings.TrimPrefix(k, "X-Amz-Meta-"))] = v
		}
	}
	return e
}

func classifyS3Error(op, bucket string, err error) error {
	pe := &ProviderError{Op: op, Provider: ProviderS3, Container: bucket, Err: err}
	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		pe.Kind = ErrAccessDenied
	case "NoSuchBucket":
		pe.Kind = ErrContainerNotFound
	case "SlowDown", "SlowDownRead":
		pe.Kind = ErrThrottled
	}
	return pe
}
