package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/damacus/iron-blobs/internal/listing"
	"go.uber.org/zap"
)

// AzureLister lists an Azure Blob Storage container one segment per call
type AzureLister struct {
	client    *container.Client
	container string
	logger    *zap.Logger
}

// NewAzureLister builds a container client for conn. The client never retries:
// every ListHierarchy call is exactly one request.
func NewAzureLister(conn Connection, logger *zap.Logger) (*AzureLister, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}

	containerURL := conn.ContainerURL()
	var (
		client *container.Client
		err    error
	)
	switch conn.AuthMode {
	case AuthPublic:
		client, err = container.NewClientWithNoCredential(containerURL, opts)
	case AuthSAS:
		withSAS, serr := appendSASToken(containerURL, conn.SASToken)
		if serr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConnection, serr)
		}
		client, err = container.NewClientWithNoCredential(withSAS, opts)
	case AuthSharedKey:
		cred, cerr := container.NewSharedKeyCredential(conn.Account, conn.AccountKey)
		if cerr != nil {
			return nil, fmt.Errorf("%w: build shared key credential: %v", ErrInvalidConnection, cerr)
		}
		client, err = container.NewClientWithSharedKeyCredential(containerURL, cred, opts)
	case AuthAAD:
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("azure: default credential: %w", cerr)
		}
		client, err = container.NewClient(containerURL, cred, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("azure: create client: %w", err)
	}

	return &AzureLister{
		client:    client,
		container: conn.Container,
		logger:    logger.With(zap.String("container", conn.Container)),
	}, nil
}

// ListHierarchy fetches a single listing segment
func (l *AzureLister) ListHierarchy(ctx context.Context, req listing.ListRequest) (*listing.ListResponse, error) {
	delimiter := req.Delimiter
	if delimiter == "" {
		delimiter = listing.Delimiter
	}
	opts := &container.ListBlobsHierarchyOptions{
		Include: container.ListBlobsInclude{Metadata: req.IncludeMetadata},
	}
	if req.MaxResults > 0 {
		opts.MaxResults = to.Ptr(req.MaxResults)
	}
	if req.Prefix != "" {
		opts.Prefix = to.Ptr(req.Prefix)
	}
	if req.Marker != "" {
		opts.Marker = to.Ptr(req.Marker)
	}

	pager := l.client.NewListBlobsHierarchyPager(delimiter, opts)
	page, err := pager.NextPage(ctx)
	if err != nil {
		return nil, classifyAzureError("ListHierarchy", l.container, err)
	}

	resp := &listing.ListResponse{}
	if page.NextMarker != nil {
		resp.NextMarker = *page.NextMarker
	}
	if page.Segment != nil {
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			resp.Entries = append(resp.Entries, entryFromBlobItem(item))
		}
		for _, p := range page.Segment.BlobPrefixes {
			if p == nil || p.Name == nil {
				continue
			}
			resp.DirectoryPrefixes = append(resp.DirectoryPrefixes, *p.Name)
		}
	}

	l.logger.Debug("Listed segment",
		zap.String("prefix", req.Prefix),
		zap.Bool("continued", req.Marker != ""),
		zap.Int("blobs", len(resp.Entries)),
		zap.Int("prefixes", len(resp.DirectoryPrefixes)),
		zap.Bool("more", resp.NextMarker != ""))
	return resp, nil
}

func entryFromBlobItem(item *container.BlobItem) listing.Entry {
	e := listing.Entry{
		Name:      *item.Name,
		Snapshot:  item.Snapshot,
		VersionID: item.VersionID,
		Deleted:   item.Deleted,
	}
	if p := item.Properties; p != nil {
		e.Properties = &listing.Properties{
			ContentLength: p.ContentLength,
			ContentType:   p.ContentType,
			LastModified:  p.LastModified,
		}
		if p.ETag != nil {
			e.Properties.ETag = to.Ptr(string(*p.ETag))
		}
		if p.AccessTier != nil {
			e.Properties.AccessTier = to.Ptr(string(*p.AccessTier))
		}
		if p.BlobType != nil {
			e.Properties.BlobType = to.Ptr(string(*p.BlobType))
		}
	}
	// The service decodes metadata keys lowercased; keep every key that way
	if len(item.Metadata) > 0 {
		e.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			if v != nil {
				e.Metadata[strings.ToLower(k)] = *v
			}
		}
	}
	return e
}

func classifyAzureError(op, containerName string, err error) error {
	pe := &ProviderError{Op: op, Provider: ProviderAzure, Container: containerName, Err: err}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == http.StatusForbidden || respErr.StatusCode == http.StatusUnauthorized:
			pe.Kind = ErrAccessDenied
		case respErr.StatusCode == http.StatusNotFound:
			pe.Kind = ErrContainerNotFound
		case respErr.StatusCode == http.StatusTooManyRequests || respErr.StatusCode == http.StatusServiceUnavailable:
			pe.Kind = ErrThrottled
		}
	}
	return pe
}
