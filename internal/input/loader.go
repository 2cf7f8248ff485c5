// Package input loads bookmark requests from CSV, JSON, or pipe-delimited
// text files, dispatching on the file extension.
package input

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/hometools/internal/instapaper"
	"github.com/MrSnakeDoc/hometools/internal/utils"
)

// LoadError names the offending file (and line, when known) for any input
// that cannot be parsed into bookmark requests.
type LoadError struct {
	Path string
	Line int // 0 when not line-addressable
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// Load reads bookmark requests from a path, inferring the format from the
// extension: .csv, .json, or .txt / no extension (pipe-delimited text).
func Load(path string) ([]instapaper.BookmarkRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Msg: err.Error()}
	}
	defer utils.Close(f)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path, f)
	case ".json":
		return loadJSON(path, f)
	case ".txt", "":
		return loadText(path, f)
	default:
		return nil, &LoadError{Path: path,
			Msg: fmt.Sprintf("unsupported input format %q", filepath.Ext(path))}
	}
}

func loadCSV(path string, r io.Reader) ([]instapaper.BookmarkRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &LoadError{Path: path, Line: 1, Msg: "could not read CSV header"}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := cols["url"]; !ok {
		return nil, &LoadError{Path: path, Line: 1, Msg: "CSV input must contain a 'url' column"}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var requests []instapaper.BookmarkRequest
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Line: line, Msg: err.Error()}
		}

		url := field(record, "url")
		if url == "" {
			return nil, &LoadError{Path: path, Line: line, Msg: "row has no URL"}
		}
		requests = append(requests, instapaper.BookmarkRequest{
			URL:         url,
			Title:       field(record, "title"),
			Description: field(record, "description"),
			FolderID:    field(record, "folder_id"),
		})
	}
	return requests, nil
}

func loadJSON(path string, r io.Reader) ([]instapaper.BookmarkRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Path: path, Msg: err.Error()}
	}

	// Accept either a bare array or an {"items": [...]} wrapper.
	var items []jsonItem
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapper struct {
			Items []jsonItem `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Items == nil {
			return nil, &LoadError{Path: path,
				Msg: "JSON input must be an array of items or an object with an 'items' array"}
		}
		items = wrapper.Items
	}

	requests := make([]instapaper.BookmarkRequest, 0, len(items))
	for i, item := range items {
		url := strings.TrimSpace(item.URL)
		if url == "" {
			return nil, &LoadError{Path: path,
				Msg: fmt.Sprintf("item %d has no 'url' field", i+1)}
		}
		requests = append(requests, instapaper.BookmarkRequest{
			URL:         url,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			FolderID:    strings.TrimSpace(item.FolderID),
		})
	}
	return requests, nil
}

type jsonItem struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FolderID    string `json:"folder_id"`
}

// loadText parses pipe-delimited lines: url|title|description|folder_id.
// Blank lines and lines starting with # are ignored.
func loadText(path string, r io.Reader) ([]instapaper.BookmarkRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Path: path, Msg: err.Error()}
	}

	var requests []instapaper.BookmarkRequest
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		segments := strings.Split(line, "|")
		for j := range segments {
			segments[j] = strings.TrimSpace(segments[j])
		}

		if segments[0] == "" {
			return nil, &LoadError{Path: path, Line: i + 1, Msg: "missing URL"}
		}

		req := instapaper.BookmarkRequest{URL: segments[0]}
		if len(segments) > 1 {
			req.Title = segments[1]
		}
		if len(segments) > 2 {
			req.Description = segments[2]
		}
		if len(segments) > 3 {
			req.FolderID = segments[3]
		}
		requests = append(requests, req)
	}
	return requests, nil
}
