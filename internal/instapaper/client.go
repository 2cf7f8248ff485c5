package instapaper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/utils"
)

const (
	// DefaultBaseURL is the production API root. Overridable for tests.
	DefaultBaseURL = "https://www.instapaper.com/api/1"

	// listLimit is the per-folder fetch cap the API accepts.
	listLimit = 500
)

// folders fetched by AllBookmarks, in order. Starred overlaps with the
// other two, so results are deduplicated by bookmark ID.
var folders = []string{"unread", "archive", "starred"}

// Client is a minimal Instapaper API client covering the handful of calls
// the bookmark tools need.
type Client struct {
	BaseURL string

	username   string
	password   string
	signer     *oauthSigner
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient builds a client from xAuth credentials. All four credentials
// are required; authentication itself is deferred until the first call.
func NewClient(consumerKey, consumerSecret, username, password string, log logger.Logger) (*Client, error) {
	if consumerKey == "" || consumerSecret == "" || username == "" || password == "" {
		return nil, fmt.Errorf("all instapaper credentials must be provided")
	}
	return &Client{
		BaseURL:  DefaultBaseURL,
		username: username,
		password: password,
		signer:   newSigner(consumerKey, consumerSecret),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}, nil
}

// Authenticate obtains an access token via the xAuth flow. The response
// body is a URL-encoded string parsed into token and secret.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"x_auth_username": {c.username},
		"x_auth_password": {c.password},
		"x_auth_mode":     {"client_auth"},
	}

	body, status, err := c.postForm(ctx, "/oauth/access_token", form)
	if err != nil {
		return &APIError{Op: "authenticate", Message: err.Error(), Err: ErrAuthentication}
	}
	if status != http.StatusOK {
		return &APIError{Op: "authenticate", StatusCode: status, Message: string(body), Err: ErrAuthentication}
	}

	parsed, err := url.ParseQuery(string(body))
	if err != nil {
		return &APIError{Op: "authenticate", StatusCode: status,
			Message: "could not parse access token response", Err: ErrAuthentication}
	}
	token := parsed.Get("oauth_token")
	secret := parsed.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return &APIError{Op: "authenticate", StatusCode: status,
			Message: "access token missing from response", Err: ErrAuthentication}
	}

	c.signer.token = token
	c.signer.tokenSecret = secret
	return nil
}

// AddBookmark saves a single bookmark and returns the created record.
func (c *Client) AddBookmark(ctx context.Context, req BookmarkRequest) (*Bookmark, error) {
	if req.URL == "" {
		return nil, &APIError{Op: "add bookmark", Message: "request has no URL"}
	}
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	body, status, err := c.postForm(ctx, "/bookmarks/add", req.Values())
	if err != nil {
		return nil, &APIError{Op: "add bookmark", Message: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "add bookmark", StatusCode: status, Message: string(body)}
	}

	bookmarks, _, err := parseElements(body)
	if err != nil {
		return nil, &APIError{Op: "add bookmark", StatusCode: status, Message: err.Error()}
	}
	if len(bookmarks) == 0 {
		return nil, &APIError{Op: "add bookmark", StatusCode: status, Message: "no bookmark in response"}
	}
	return &bookmarks[0], nil
}

// BulkAdd saves bookmarks sequentially. The first failure aborts the
// remainder and propagates; there is no partial-failure recovery.
func (c *Client) BulkAdd(ctx context.Context, reqs []BookmarkRequest) ([]*Bookmark, error) {
	results := make([]*Bookmark, 0, len(reqs))
	for _, req := range reqs {
		bm, err := c.AddBookmark(ctx, req)
		if err != nil {
			return results, fmt.Errorf("adding %s: %w", req.URL, err)
		}
		results = append(results, bm)
	}
	return results, nil
}

// AllBookmarks fetches the unread, archive and starred folders and merges
// them, deduplicated by bookmark ID. A failed folder fetch is logged as a
// warning and skipped rather than failing the whole call.
func (c *Client) AllBookmarks(ctx context.Context) ([]Bookmark, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var all []Bookmark
	for _, folder := range folders {
		bookmarks, err := c.listFolder(ctx, folder)
		if err != nil {
			c.logger.Warn("failed to fetch bookmark folder, skipping",
				logger.String("folder", folder),
				logger.Error(err))
			continue
		}
		for _, bm := range bookmarks {
			if seen[bm.BookmarkID] {
				continue
			}
			seen[bm.BookmarkID] = true
			all = append(all, bm)
		}
	}
	return all, nil
}

// Highlights fetches the highlights attached to one bookmark.
func (c *Client) Highlights(ctx context.Context, bookmarkID int64) ([]Highlight, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/bookmarks/%d/highlights", bookmarkID)
	body, status, err := c.postForm(ctx, path, url.Values{})
	if err != nil {
		return nil, &APIError{Op: "list highlights", Message: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "list highlights", StatusCode: status, Message: string(body)}
	}

	_, highlights, err := parseElements(body)
	if err != nil {
		return nil, &APIError{Op: "list highlights", StatusCode: status, Message: err.Error()}
	}
	return highlights, nil
}

// AllHighlights fetches every highlight across all folders. Per-bookmark
// failures are logged and skipped.
func (c *Client) AllHighlights(ctx context.Context) ([]Highlight, error) {
	bookmarks, err := c.AllBookmarks(ctx)
	if err != nil {
		return nil, err
	}

	var all []Highlight
	for _, bm := range bookmarks {
		highlights, err := c.Highlights(ctx, bm.BookmarkID)
		if err != nil {
			c.logger.Warn("failed to fetch highlights for bookmark, skipping",
				logger.Int64("bookmark_id", bm.BookmarkID),
				logger.Error(err))
			continue
		}
		all = append(all, highlights...)
	}
	return all, nil
}

// BookmarkText fetches the stored full text (HTML) of a bookmark directly
// by ID.
func (c *Client) BookmarkText(ctx context.Context, bookmarkID int64) (string, error) {
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}

	form := url.Values{"bookmark_id": {strconv.FormatInt(bookmarkID, 10)}}
	body, status, err := c.postForm(ctx, "/bookmarks/get_text", form)
	if err != nil {
		return "", &APIError{Op: "get text", Message: err.Error()}
	}
	if status != http.StatusOK {
		return "", &APIError{Op: "get text", StatusCode: status, Message: string(body)}
	}
	return string(body), nil
}

func (c *Client) listFolder(ctx context.Context, folder string) ([]Bookmark, error) {
	form := url.Values{
		"folder_id": {folder},
		"limit":     {strconv.Itoa(listLimit)},
	}
	body, status, err := c.postForm(ctx, "/bookmarks/list", form)
	if err != nil {
		return nil, &APIError{Op: "list bookmarks", Message: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "list bookmarks", StatusCode: status, Message: string(body)}
	}

	bookmarks, _, err := parseElements(body)
	if err != nil {
		return nil, &APIError{Op: "list bookmarks", StatusCode: status, Message: err.Error()}
	}
	return bookmarks, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	if c.signer.token != "" && c.signer.tokenSecret != "" {
		return nil
	}
	return c.Authenticate(ctx)
}

// postForm signs and executes a form POST, returning body and status.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, int, error) {
	endpoint := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.signer.authorizationHeader(http.MethodPost, endpoint, form))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// parseElements decodes the API's typed-element arrays. List responses mix
// meta, user, bookmark, highlight and error elements in a single array.
func parseElements(body []byte) ([]Bookmark, []Highlight, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("unexpected response shape: %w", err)
	}

	var bookmarks []Bookmark
	var highlights []Highlight
	for _, msg := range raw {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			continue
		}
		switch envelope.Type {
		case "bookmark":
			var bm Bookmark
			if err := json.Unmarshal(msg, &bm); err != nil {
				return nil, nil, fmt.Errorf("decoding bookmark: %w", err)
			}
			bookmarks = append(bookmarks, bm)
		case "highlight":
			var hl Highlight
			if err := json.Unmarshal(msg, &hl); err != nil {
				return nil, nil, fmt.Errorf("decoding highlight: %w", err)
			}
			highlights = append(highlights, hl)
		case "error":
			var apiErr struct {
				ErrorCode int    `json:"error_code"`
				Message   string `json:"message"`
			}
			_ = json.Unmarshal(msg, &apiErr)
			return nil, nil, fmt.Errorf("api error %d: %s", apiErr.ErrorCode, apiErr.Message)
		}
	}
	return bookmarks, highlights, nil
}
