package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/damacus/iron-blobs/internal/models"
	"github.com/damacus/iron-blobs/internal/services"
	"github.com/damacus/iron-blobs/internal/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BrowseOptions bounds what a browse request may ask for
type BrowseOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	Timeout         time.Duration
}

type BrowseHandler struct {
	store  *services.SessionStore
	opts   BrowseOptions
	logger *zap.Logger
}

func NewBrowseHandler(store *services.SessionStore, opts BrowseOptions, logger *zap.Logger) *BrowseHandler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowseHandler{store: store, opts: opts, logger: logger}
}

// sortColumns are the table headers that can be sorted on
var sortColumns = []struct {
	Title string
	Field string
}{
	{"Name", "name"},
	{"Publisher", "Publisher"},
	{"Category", "Category"},
	{"License", "License"},
	{"Size", "contentLength"},
	{"Content Type", "contentType"},
	{"Last Modified", "lastModified"},
}

type browseQuery struct {
	Prefix   string
	Page     int
	PageSize int
	Sort     listing.SortSpec
}

// encode builds the query string for q, leaving out defaults
func (q browseQuery) encode(defaultPageSize int) string {
	v := url.Values{}
	if q.Prefix != "" {
		v.Set("prefix", q.Prefix)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize != defaultPageSize {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if s := q.Sort.String(); s != listing.DefaultSort.String() {
		v.Set("sort", s)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (h *BrowseHandler) parseQuery(c echo.Context) (browseQuery, error) {
	q := browseQuery{
		Prefix:   strings.TrimPrefix(c.QueryParam("prefix"), listing.Delimiter),
		PageSize: h.opts.DefaultPageSize,
		Sort:     listing.DefaultSort,
	}

	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return q, fmt.Errorf("%w: page must be a non-negative integer, got %q", listing.ErrInvalidRequest, raw)
		}
		q.Page = page
	}

	if raw := c.QueryParam("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return q, fmt.Errorf("%w: pageSize must be a positive integer, got %q", listing.ErrInvalidRequest, raw)
		}
		q.PageSize = min(size, h.opts.MaxPageSize)
	}

	if raw := c.QueryParam("sort"); raw != "" {
		spec, err := listing.ParseSortSpec(raw)
		if err != nil {
			return q, err
		}
		q.Sort = spec
	}
	return q, nil
}

// fetch runs the page request through the session's cursor
func (h *BrowseHandler) fetch(c echo.Context, conn *services.Connection, q browseQuery) (listing.State, error) {
	sessionID, err := GetSessionID(c)
	if err != nil {
		return listing.State{}, err
	}
	cursor, err := h.store.Acquire(sessionID, *conn)
	if err != nil {
		return listing.State{}, err
	}

	ctx := c.Request().Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}
	return cursor.Fetch(ctx, q.Page, q.Prefix, q.Sort, q.PageSize)
}

// Browse renders one page of the container as a table
func (h *BrowseHandler) Browse(c echo.Context) error {
	conn, err := GetConnectionOrRedirect(c)
	if err != nil || conn == nil {
		return err
	}

	q, err := h.parseQuery(c)
	if err != nil {
		return h.httpError(err)
	}
	state, err := h.fetch(c, conn, q)
	if err != nil {
		return h.httpError(err)
	}

	rows := make([]models.EntryRow, 0, len(state.Entries)+1)
	if q.Prefix != "" {
		parent := browseQuery{Prefix: parentPrefix(q.Prefix), PageSize: q.PageSize, Sort: q.Sort}
		rows = append(rows, models.EntryRow{
			Name:        "../",
			DisplayName: "../",
			Link:        "/browse" + parent.encode(h.opts.DefaultPageSize),
			IsDir:       true,
			IsParent:    true,
		})
	}
	for _, e := range state.Entries {
		rows = append(rows, h.entryRow(conn, q, e))
	}

	return c.Render(http.StatusOK, "browser", map[string]interface{}{
		"Connection":  conn.Label(),
		"Container":   conn.Container,
		"Prefix":      q.Prefix,
		"Breadcrumbs": h.breadcrumbs(q),
		"Rows":        rows,
		"Columns":     h.sortColumns(q),
		"Pager":       h.pager(q, state),
		"PageSize":    q.PageSize,
	})
}

// Entries returns one page as JSON
func (h *BrowseHandler) Entries(c echo.Context) error {
	conn, err := GetConnection(c)
	if err != nil {
		return err
	}

	q, err := h.parseQuery(c)
	if err != nil {
		return h.httpError(err)
	}
	state, err := h.fetch(c, conn, q)
	if err != nil {
		return h.httpError(err)
	}

	entries := make([]models.EntryJSON, 0, len(state.Entries))
	for _, e := range state.Entries {
		item := models.EntryJSON{
			Name:        e.Name,
			IsDirectory: e.IsDirectory(),
			Metadata:    e.Metadata,
		}
		if p := e.Properties; p != nil {
			item.ContentLength = p.ContentLength
			item.ContentType = utils.Deref(p.ContentType)
			item.LastModified = utils.FormatTimestamp(p.LastModified)
		}
		if !e.IsDirectory() {
			item.URL = conn.BlobURL(e.Name)
		}
		entries = append(entries, item)
	}

	return c.JSON(http.StatusOK, models.EntriesResponse{
		Prefix:     state.Prefix,
		Sort:       state.Sort.String(),
		Entries:    entries,
		Page:       state.PageIndex,
		PageSize:   state.PageSize,
		TotalPages: state.TotalPages,
		HasNext:    state.TotalPages > state.PageIndex+1,
	})
}

func (h *BrowseHandler) entryRow(conn *services.Connection, q browseQuery, e listing.Entry) models.EntryRow {
	row := models.EntryRow{
		Name:        e.Name,
		DisplayName: strings.TrimPrefix(e.Name, q.Prefix),
		IsDir:       e.IsDirectory(),
	}
	if row.IsDir {
		next := browseQuery{Prefix: e.Name, PageSize: q.PageSize, Sort: q.Sort}
		row.Link = "/browse" + next.encode(h.opts.DefaultPageSize)
		return row
	}

	row.Link = conn.BlobURL(e.Name)
	row.DownloadURL = row.Link
	if p := e.Properties; p != nil {
		row.FormattedSize = utils.FormatContentLength(p.ContentLength)
		row.ContentType = utils.Deref(p.ContentType)
		row.LastModified = utils.FormatTimestamp(p.LastModified)
	}
	if row.ContentType == "" {
		row.ContentType = utils.ContentTypeFromName(e.Name)
	}
	row.Publisher = metadataValue(e.Metadata, "Publisher")
	row.Category = metadataValue(e.Metadata, "Category")
	row.License = metadataValue(e.Metadata, "License")
	return row
}

func (h *BrowseHandler) sortColumns(q browseQuery) []models.SortColumn {
	primary := q.Sort.Primary()
	cols := make([]models.SortColumn, 0, len(sortColumns))
	for _, col := range sortColumns {
		// Changing the order starts again from the first page
		next := browseQuery{Prefix: q.Prefix, PageSize: q.PageSize, Sort: q.Sort.Toggle(col.Field)}
		active := strings.EqualFold(primary.Field, col.Field)
		cols = append(cols, models.SortColumn{
			Title:     col.Title,
			Field:     col.Field,
			Link:      "/browse" + next.encode(h.opts.DefaultPageSize),
			Active:    active,
			Ascending: active && !primary.Descending,
		})
	}
	return cols
}

func (h *BrowseHandler) pager(q browseQuery, state listing.State) models.Pager {
	p := models.Pager{Page: state.PageIndex + 1, TotalPages: state.TotalPages}
	if state.PageIndex > 0 {
		prev := q
		prev.Page = state.PageIndex - 1
		p.PrevLink = "/browse" + prev.encode(h.opts.DefaultPageSize)
	}
	if state.TotalPages > state.PageIndex+1 {
		next := q
		next.Page = state.PageIndex + 1
		p.NextLink = "/browse" + next.encode(h.opts.DefaultPageSize)
	}
	return p
}

// httpError maps listing and provider failures to HTTP status codes
func (h *BrowseHandler) httpError(err error) error {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, listing.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, listing.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, "Page has not been reached yet; start from the first page")
	case errors.Is(err, listing.ErrStaleFetch):
		return echo.NewHTTPError(http.StatusConflict, "Request superseded by a newer one")
	case errors.Is(err, services.ErrInvalidConnection):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case services.IsAccessDenied(err):
		return echo.NewHTTPError(http.StatusForbidden, "Access denied by the storage service")
	case services.IsContainerNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "Container not found")
	case services.IsThrottled(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage service is throttling requests")
	case listing.IsPageFetchError(err):
		h.logger.Error("Listing failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to list container")
	default:
		h.logger.Error("Browse failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list container")
	}
}

func parentPrefix(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, listing.Delimiter)
	i := strings.LastIndex(trimmed, listing.Delimiter)
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}

// breadcrumbs links every ancestor of q.Prefix, keeping page size and sort
func (h *BrowseHandler) breadcrumbs(q browseQuery) []models.Breadcrumb {
	link := func(prefix string) string {
		crumb := browseQuery{Prefix: prefix, PageSize: q.PageSize, Sort: q.Sort}
		return "/browse" + crumb.encode(h.opts.DefaultPageSize)
	}
	crumbs := []models.Breadcrumb{{Name: "root", Path: link("")}}
	if q.Prefix == "" {
		return crumbs
	}
	parts := strings.Split(strings.TrimSuffix(q.Prefix, listing.Delimiter), listing.Delimiter)
	path := ""
	for _, part := range parts {
		path += part + listing.Delimiter
		crumbs = append(crumbs, models.Breadcrumb{Name: part, Path: link(path)})
	}
	return crumbs
}

func metadataValue(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok {
		return v
	}
	for k, v := range metadata {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
