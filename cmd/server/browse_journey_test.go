package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/damacus/iron-blobs/internal/models"
	"github.com/damacus/iron-blobs/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestBrowseJourney(t *testing.T) {
	// 1. Setup
	conn := services.Connection{
		Provider:  services.ProviderAzure,
		Account:   "acct",
		Container: "datasets",
		AuthMode:  services.AuthPublic,
	}
	size := int64(4096)
	modified := time.Date(2022, 1, 3, 10, 0, 0, 0, time.UTC)

	mockLister := new(MockLister)
	mockLister.On("ListHierarchy", mock.Anything, listing.ListRequest{Delimiter: "/", MaxResults: 1}).
		Return(&listing.ListResponse{}, nil)
	mockLister.On("ListHierarchy", mock.Anything, listing.ListRequest{Delimiter: "/", MaxResults: 2, IncludeMetadata: true}).
		Return(&listing.ListResponse{
			Entries: []listing.Entry{{
				Name:       "readme.txt",
				Properties: &listing.Properties{ContentLength: &size, LastModified: &modified},
				Metadata:   map[string]string{"Publisher": "Acme"},
			}},
			DirectoryPrefixes: []string{"folder/"},
			NextMarker:        "m1",
		}, nil)
	mockLister.On("ListHierarchy", mock.Anything, listing.ListRequest{Delimiter: "/", Marker: "m1", MaxResults: 2, IncludeMetadata: true}).
		Return(&listing.ListResponse{Entries: []listing.Entry{{Name: "zebra.csv"}}}, nil)

	mockFactory := new(MockListerFactory)
	mockFactory.On("NewLister", conn).Return(mockLister, nil)

	e, _ := newTestServer(t, mockFactory)

	// Step A: Connect page issues a CSRF token
	recPage := httptest.NewRecorder()
	e.ServeHTTP(recPage, httptest.NewRequest(http.MethodGet, "/connect", nil))
	require.Equal(t, http.StatusOK, recPage.Code)
	csrf := cookieNamed(recPage.Result().Cookies(), "iron_blobs_csrf")
	require.NotNil(t, csrf)

	// Step B: Connect
	form := url.Values{}
	form.Set("account", "acct")
	form.Set("container", "datasets")
	form.Set("containerType", "public")
	form.Set("_csrf", csrf.Value)
	reqConnect := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(form.Encode()))
	reqConnect.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	reqConnect.AddCookie(csrf)
	recConnect := httptest.NewRecorder()
	e.ServeHTTP(recConnect, reqConnect)

	require.Equal(t, http.StatusOK, recConnect.Code)
	assert.Equal(t, "/browse", recConnect.Header().Get("HX-Redirect"))
	seal := cookieNamed(recConnect.Result().Cookies(), "IronBlobsSeal")
	session := cookieNamed(recConnect.Result().Cookies(), "IronBlobsSession")
	require.NotNil(t, seal)
	require.NotNil(t, session)

	withCookies := func(req *http.Request) *http.Request {
		req.AddCookie(seal)
		req.AddCookie(session)
		return req
	}

	// Step C: Browse the first page
	recBrowse := httptest.NewRecorder()
	e.ServeHTTP(recBrowse, withCookies(httptest.NewRequest(http.MethodGet, "/browse", nil)))

	require.Equal(t, http.StatusOK, recBrowse.Code)
	body := recBrowse.Body.String()
	assert.Contains(t, body, "readme.txt")
	assert.Contains(t, body, "folder/")
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "4.0 KB")
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, "https://acct.blob.core.windows.net/datasets/readme.txt")
	assert.Equal(t, "no-store", recBrowse.Header().Get("Cache-Control"))

	// Step D: Follow the marker through the API
	recNext := httptest.NewRecorder()
	e.ServeHTTP(recNext, withCookies(httptest.NewRequest(http.MethodGet, "/api/entries?page=1", nil)))

	require.Equal(t, http.StatusOK, recNext.Code)
	var next models.EntriesResponse
	require.NoError(t, json.Unmarshal(recNext.Body.Bytes(), &next))
	require.Len(t, next.Entries, 1)
	assert.Equal(t, "zebra.csv", next.Entries[0].Name)
	assert.Equal(t, 1, next.Page)
	assert.Equal(t, 2, next.TotalPages)
	assert.False(t, next.HasNext)

	// Step E: Jumping past the known pages is rejected
	recJump := httptest.NewRecorder()
	e.ServeHTTP(recJump, withCookies(httptest.NewRequest(http.MethodGet, "/api/entries?page=5", nil)))
	assert.Equal(t, http.StatusConflict, recJump.Code)

	// Step F: Disconnect
	recBye := httptest.NewRecorder()
	e.ServeHTTP(recBye, withCookies(httptest.NewRequest(http.MethodGet, "/disconnect", nil)))

	assert.Equal(t, http.StatusSeeOther, recBye.Code)
	assert.Equal(t, "/connect", recBye.Header().Get("Location"))
	cleared := cookieNamed(recBye.Result().Cookies(), "IronBlobsSeal")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	mockLister.AssertExpectations(t)
	mockFactory.AssertExpectations(t)
}

func TestBrowseJourney_ProbeFailureKeepsUserOnConnectPage(t *testing.T) {
	conn := services.Connection{
		Provider:  services.ProviderAzure,
		Account:   "acct",
		Container: "private",
		AuthMode:  services.AuthSAS,
		SASToken:  "sig=expired",
	}
	mockLister := new(MockLister)
	mockLister.On("ListHierarchy", mock.Anything, mock.Anything).
		Return(nil, &services.ProviderError{Op: "ListHierarchy", Provider: services.ProviderAzure, Kind: services.ErrAccessDenied, Err: assert.AnError})
	mockFactory := new(MockListerFactory)
	mockFactory.On("NewLister", conn).Return(mockLister, nil)

	e, _ := newTestServer(t, mockFactory)

	recPage := httptest.NewRecorder()
	e.ServeHTTP(recPage, httptest.NewRequest(http.MethodGet, "/connect", nil))
	csrf := cookieNamed(recPage.Result().Cookies(), "iron_blobs_csrf")
	require.NotNil(t, csrf)

	form := url.Values{}
	form.Set("account", "acct")
	form.Set("container", "private")
	form.Set("containerType", "private")
	form.Set("sasToken", "sig=expired")
	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", csrf.Value)
	req.AddCookie(csrf)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
	assert.Empty(t, rec.Header().Get("HX-Redirect"))
	assert.Nil(t, cookieNamed(rec.Result().Cookies(), "IronBlobsSeal"))
}
