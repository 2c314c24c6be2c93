package services

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider identifies the storage service behind a connection
type Provider string

const (
	ProviderAzure Provider = "azure"
	ProviderS3    Provider = "s3"
)

// AuthMode selects how an Azure container is accessed
type AuthMode string

const (
	// AuthPublic reads a public container anonymously
	AuthPublic AuthMode = "public"
	// AuthSAS appends a SAS token to every request
	AuthSAS AuthMode = "sas"
	// AuthSharedKey signs requests with the account key
	AuthSharedKey AuthMode = "sharedkey"
	// AuthAAD uses the Azure default credential chain
	AuthAAD AuthMode = "aad"
)

// Connection represents what the user entered on the connect form
type Connection struct {
	Provider  Provider `json:"provider"`
	Container string   `json:"container"`

	// Azure
	Account    string   `json:"account,omitempty"`
	AuthMode   AuthMode `json:"authMode,omitempty"`
	SASToken   string   `json:"sasToken,omitempty"`
	AccountKey string   `json:"accountKey,omitempty"`

	// Endpoint overrides the Azure service URL (e.g. Azurite) or names the S3 host:port
	Endpoint string `json:"endpoint,omitempty"`

	// S3
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
}

// Validate checks that the connection carries what its provider and auth mode need
func (c Connection) Validate() error {
	if c.Container == "" {
		return fmt.Errorf("%w: container name is required", ErrInvalidConnection)
	}
	switch c.Provider {
	case ProviderAzure:
		if c.Account == "" && c.Endpoint == "" {
			return fmt.Errorf("%w: account name is required", ErrInvalidConnection)
		}
		switch c.AuthMode {
		case AuthPublic, AuthAAD:
		case AuthSAS:
			if c.SASToken == "" {
				return fmt.Errorf("%w: SAS token is required for a private container", ErrInvalidConnection)
			}
		case AuthSharedKey:
			if c.AccountKey == "" || c.Account == "" {
				return fmt.Errorf("%w: account name and key are required", ErrInvalidConnection)
			}
		default:
			return fmt.Errorf("%w: unknown auth mode %q", ErrInvalidConnection, c.AuthMode)
		}
	case ProviderS3:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: endpoint is required", ErrInvalidConnection)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConnection, c.Provider)
	}
	return nil
}

// Key identifies the listing a connection points at. Browsing state is only valid
// for a single key.
func (c Connection) Key() string {
	return strings.Join([]string{string(c.Provider), c.Endpoint, c.Account, c.Container}, "|")
}

// ServiceURL returns the blob service root
func (c Connection) ServiceURL() string {
	switch c.Provider {
	case ProviderS3:
		scheme := "https"
		if !shouldUseSSL(c.Endpoint) {
			scheme = "http"
		}
		return scheme + "://" + c.Endpoint
	default:
		if c.Endpoint != "" {
			return strings.TrimSuffix(c.Endpoint, "/")
		}
		return fmt.Sprintf("https://%s.blob.core.windows.net", c.Account)
	}
}

// ContainerURL returns the container (or bucket) root without credentials
func (c Connection) ContainerURL() string {
	return c.ServiceURL() + "/" + url.PathEscape(c.Container)
}

// BlobURL returns a link to a blob. For SAS connections the token is appended so the
// link works from a browser.
func (c Connection) BlobURL(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	link := c.ContainerURL() + "/" + strings.Join(segments, "/")
	if c.Provider == ProviderAzure && c.AuthMode == AuthSAS && c.SASToken != "" {
		withSAS, err := appendSASToken(link, c.SASToken)
		if err == nil {
			return withSAS
		}
	}
	return link
}

// Label is a short human-readable name for the connection
func (c Connection) Label() string {
	if c.Provider == ProviderS3 {
		return c.Endpoint + "/" + c.Container
	}
	if c.Account != "" {
		return c.Account + "/" + c.Container
	}
	return c.Container
}

func appendSASToken(rawURL, sas string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	sas = strings.TrimPrefix(strings.TrimSpace(sas), "?")
	if u.RawQuery != "" {
		u.RawQuery = u.RawQuery + "&" + sas
	} else {
		u.RawQuery = sas
	}
	return u.String(), nil
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, ...) but not domain names like minio.example.com
	if strings.HasPrefix(endpoint, "minio") && !strings.Contains(strings.Split(endpoint, ":")[0], ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}
