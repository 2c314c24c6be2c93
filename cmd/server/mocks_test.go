package main

import (
	"context"
	"io"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/damacus/iron-blobs/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

// MockLister implements listing.Lister for testing
type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListHierarchy(ctx context.Context, req listing.ListRequest) (*listing.ListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*listing.ListResponse)
	return resp, args.Error(1)
}

// MockListerFactory implements ListerFactory for testing
type MockListerFactory struct {
	mock.Mock
}

func (m *MockListerFactory) NewLister(conn services.Connection) (listing.Lister, error) {
	args := m.Called(conn)
	lister, _ := args.Get(0).(listing.Lister)
	return lister, args.Error(1)
}

// MockRenderer implements echo.Renderer for testing
type MockRenderer struct{}

func (r *MockRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return nil // Successfully "rendered" nothing
}
