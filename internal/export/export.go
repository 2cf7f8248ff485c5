// Package export writes bookmarks and highlights to CSV or JSON files.
// All exports are deterministic transforms of in-memory records.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/hometools/internal/instapaper"
)

// ExportError wraps any I/O failure during an export.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanHTML strips tags, unescapes entities and collapses whitespace.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HighlightsOutputPath derives the highlights file path from the bookmarks
// path: "data/export.csv" -> "data/export_highlights.csv".
func HighlightsOutputPath(bookmarksPath string) string {
	ext := filepath.Ext(bookmarksPath)
	stem := strings.TrimSuffix(filepath.Base(bookmarksPath), ext)
	return filepath.Join(filepath.Dir(bookmarksPath), stem+"_highlights"+ext)
}

// BookmarksCSV writes bookmarks with a fixed column header set. When
// includeText is set, a cleaned full_text column is appended.
func BookmarksCSV(bookmarks []instapaper.Bookmark, path string, includeText bool) error {
	header := []string{"bookmark_id", "title", "url", "description", "time_added", "progress", "starred"}
	if includeText {
		header = append(header, "full_text")
	}

	rows := make([][]string, 0, len(bookmarks))
	for _, bm := range bookmarks {
		starred := "0"
		if bm.Starred {
			starred = "1"
		}
		row := []string{
			strconv.FormatInt(bm.BookmarkID, 10),
			bm.Title,
			bm.URL,
			bm.Description,
			strconv.FormatInt(bm.Time, 10),
			strconv.FormatFloat(bm.Progress, 'f', -1, 64),
			starred,
		}
		if includeText {
			row = append(row, CleanHTML(bm.FullText))
		}
		rows = append(rows, row)
	}

	return writeCSV(path, header, rows)
}

// HighlightsCSV writes highlights with a fixed column header set.
// Text and note fields are HTML-cleaned.
func HighlightsCSV(highlights []instapaper.Highlight, path string) error {
	header := []string{"bookmark_id", "highlight_id", "text", "note", "time", "position"}

	rows := make([][]string, 0, len(highlights))
	for _, hl := range highlights {
		rows = append(rows, []string{
			strconv.FormatInt(hl.BookmarkID, 10),
			strconv.FormatInt(hl.HighlightID, 10),
			CleanHTML(hl.Text),
			CleanHTML(hl.Note),
			strconv.FormatInt(hl.Time, 10),
			strconv.FormatInt(hl.Position, 10),
		})
	}

	return writeCSV(path, header, rows)
}

type jsonHighlight struct {
	HighlightID int64   `json:"highlight_id"`
	Text        string  `json:"text"`
	Note        *string `json:"note"`
	Time        int64   `json:"time"`
	Position    int64   `json:"position"`
}

type jsonBookmark struct {
	BookmarkID  int64           `json:"bookmark_id"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Description string          `json:"description"`
	TimeAdded   int64           `json:"time_added"`
	Progress    float64         `json:"progress"`
	Starred     bool            `json:"starred"`
	FullText    *string         `json:"full_text,omitempty"`
	Highlights  []jsonHighlight `json:"highlights"`
}

type jsonDocument struct {
	TotalBookmarks  int            `json:"total_bookmarks"`
	TotalHighlights int            `json:"total_highlights"`
	Bookmarks       []jsonBookmark `json:"bookmarks"`
}

// JSON writes a nested document grouping highlights under their owning
// bookmark, plus totals.
func JSON(bookmarks []instapaper.Bookmark, highlights []instapaper.Highlight, path string, includeText bool) error {
	byBookmark := make(map[int64][]jsonHighlight)
	for _, hl := range highlights {
		var note *string
		if hl.Note != "" {
			cleaned := CleanHTML(hl.Note)
			note = &cleaned
		}
		byBookmark[hl.BookmarkID] = append(byBookmark[hl.BookmarkID], jsonHighlight{
			HighlightID: hl.HighlightID,
			Text:        CleanHTML(hl.Text),
			Note:        note,
			Time:        hl.Time,
			Position:    hl.Position,
		})
	}

	doc := jsonDocument{
		TotalBookmarks:  len(bookmarks),
		TotalHighlights: len(highlights),
		Bookmarks:       make([]jsonBookmark, 0, len(bookmarks)),
	}
	for _, bm := range bookmarks {
		entry := jsonBookmark{
			BookmarkID:  bm.BookmarkID,
			Title:       bm.Title,
			URL:         bm.URL,
			Description: bm.Description,
			TimeAdded:   bm.Time,
			Progress:    bm.Progress,
			Starred:     bool(bm.Starred),
			Highlights:  []jsonHighlight{},
		}
		if includeText {
			cleaned := CleanHTML(bm.FullText)
			entry.FullText = &cleaned
		}
		if hls, ok := byBookmark[bm.BookmarkID]; ok {
			entry.Highlights = hls
		}
		doc.Bookmarks = append(doc.Bookmarks, entry)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := writeOutput(path, data); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return &ExportError{Path: path, Err: err}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return &ExportError{Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return &ExportError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
