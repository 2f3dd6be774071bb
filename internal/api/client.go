package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/like"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

// Ensure Client satisfies the engine boundaries at compile time.
var (
	_ listing.Searcher   = (*Client)(nil)
	_ like.Mutator       = (*Client)(nil)
	_ like.StatusChecker = (*Client)(nil)
)

// Client talks to the Cinemoa HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	pageSize  int
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "cinemoa/0.1"
	defaultTimeout   = 5 * time.Second
)

// Options tunes a Client. Zero values select defaults.
type Options struct {
	Timeout  time.Duration
	PageSize int
}

// NewClient builds a Client for the API at base.
func NewClient(base string, opts Options) (*Client, error) {
	u, err := parseBaseURL(base)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		pageSize:  opts.PageSize,
	}, nil
}

// Search fetches one page of the listing described by set.
func (c *Client) Search(ctx context.Context, set filter.FilterSet, cursor string) (listing.Page, error) {
	if c == nil {
		return listing.Page{}, fmt.Errorf("client is nil")
	}
	rel, err := SearchURL(set.Normalize(), cursor, c.pageSize)
	if err != nil {
		return listing.Page{}, err
	}
	var data PageData
	if err := c.doURL(ctx, http.MethodGet, rel, &data); err != nil {
		return listing.Page{}, err
	}
	return data.Page(cursor)
}

// SearchURL maps a filter set onto its endpoint and query parameters.
// The free-text endpoint names its cursor parameter nextCursor; the others
// call it cursor.
func SearchURL(set filter.FilterSet, cursor string, pageSize int) (*url.URL, error) {
	values := url.Values{}
	cursorKey := "cursor"

	var path string
	switch set.Family {
	case filter.FamilySearch:
		path = "/api/fundings/search"
		cursorKey = "nextCursor"
	case filter.FamilyCategory:
		path = "/api/fundings"
	case filter.FamilyHome:
		if set.Section == "" {
			return nil, fmt.Errorf("home listing requires a section")
		}
		path = "/api/home/" + url.PathEscape(set.Section)
	case filter.FamilyProfile:
		if set.Section == "" || set.ViewerID <= 0 {
			return nil, fmt.Errorf("profile listing requires a section and viewer")
		}
		path = "/api/users/" + strconv.FormatInt(set.ViewerID, 10) + "/" + url.PathEscape(set.Section)
	default:
		return nil, fmt.Errorf("unsupported listing family %q", set.Family)
	}

	if set.Query != "" {
		values.Set("q", set.Query)
	}
	if set.Sort != "" && set.Sort != filter.SortLatest {
		values.Set("sort", string(set.Sort))
	}
	if set.Category.TopLevel > 0 {
		values.Set("category", strconv.FormatInt(set.Category.TopLevel, 10))
	}
	for _, id := range set.Category.Leaves {
		values.Add("subCategory", strconv.FormatInt(id, 10))
	}
	for _, r := range set.Regions {
		values.Add("region", r)
	}
	for _, v := range set.VenueTypes {
		values.Add("venueType", v)
	}
	if set.IncludeClosed {
		values.Set("includeClosed", "true")
	}
	if set.ViewerID > 0 {
		values.Set("userId", strconv.FormatInt(set.ViewerID, 10))
	}
	if pageSize > 0 {
		values.Set("size", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		values.Set(cursorKey, cursor)
	}
	return &url.URL{Path: path, RawQuery: values.Encode()}, nil
}

// AddLike likes itemID on behalf of viewerID.
func (c *Client) AddLike(ctx context.Context, itemID, viewerID int64) error {
	return c.like(ctx, http.MethodPost, itemID, viewerID)
}

// RemoveLike removes the like of viewerID from itemID.
func (c *Client) RemoveLike(ctx context.Context, itemID, viewerID int64) error {
	return c.like(ctx, http.MethodDelete, itemID, viewerID)
}

func (c *Client) like(ctx context.Context, method string, itemID, viewerID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if itemID <= 0 {
		return fmt.Errorf("item id required")
	}
	rel := itemURL(itemID, viewerID, "/like")
	return c.doURL(ctx, method, rel, nil)
}

// LikeStatus returns the authoritative like flag of itemID for viewerID.
func (c *Client) LikeStatus(ctx context.Context, itemID, viewerID int64) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	var data LikeStatusData
	if err := c.doURL(ctx, http.MethodGet, itemURL(itemID, viewerID, ""), &data); err != nil {
		return false, err
	}
	return data.IsLiked, nil
}

func itemURL(itemID, viewerID int64, suffix string) *url.URL {
	values := url.Values{}
	if viewerID > 0 {
		values.Set("userId", strconv.FormatInt(viewerID, 10))
	}
	return &url.URL{
		Path:     "/api/fundings/" + strconv.FormatInt(itemID, 10) + suffix,
		RawQuery: values.Encode(),
	}
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent && dest == nil {
		return nil
	}
	var env Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if decodeErr == nil && env.State != "" && env.State != StateOK {
		return &ServerError{State: env.State, Code: env.Code, Message: env.Message}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.State != StateOK {
		return fmt.Errorf("decode response: missing state")
	}
	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// IsServerError reports whether err carries a FAIL or ERROR envelope.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", base, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
