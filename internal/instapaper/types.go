package instapaper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// BookmarkRequest represents a request to add a bookmark.
// Immutable once constructed; built by the input loaders or CLI flags.
type BookmarkRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	FolderID    string `json:"folder_id,omitempty"`
}

// Values encodes the request as form parameters for bookmarks/add.
// Optional fields are omitted when empty.
func (r BookmarkRequest) Values() url.Values {
	v := url.Values{}
	v.Set("url", r.URL)
	if r.Title != "" {
		v.Set("title", r.Title)
	}
	if r.Description != "" {
		v.Set("description", r.Description)
	}
	if r.FolderID != "" {
		v.Set("folder_id", r.FolderID)
	}
	return v
}

// Bookmark mirrors the bookmark record returned by the API.
type Bookmark struct {
	BookmarkID  int64   `json:"bookmark_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Time        int64   `json:"time"`
	Progress    float64 `json:"progress"`
	Starred     Flag    `json:"starred"`

	// FullText is filled by BookmarkText on demand, never by the list calls.
	FullText string `json:"-"`
}

// Highlight mirrors a highlight/annotation record attached to a bookmark.
type Highlight struct {
	HighlightID int64  `json:"highlight_id"`
	BookmarkID  int64  `json:"bookmark_id"`
	Text        string `json:"text"`
	Note        string `json:"note"`
	Time        int64  `json:"time"`
	Position    int64  `json:"position"`
}

// Flag is a boolean the API encodes inconsistently: true/false, 0/1,
// or the strings "0"/"1" depending on the endpoint.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "true", "1":
		*f = true
		return nil
	case "false", "0", "", "null":
		*f = false
		return nil
	}
	// Some responses carry numeric progress-like values; anything non-zero is set.
	if n, err := strconv.ParseFloat(string(data), 64); err == nil {
		*f = n != 0
		return nil
	}
	return fmt.Errorf("cannot parse %q as flag", data)
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}
