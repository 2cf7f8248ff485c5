// bookmarkadd bulk-adds bookmarks to an Instapaper account from CSV, JSON,
// or pipe-delimited text files, or directly from --url flags.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/MrSnakeDoc/hometools/internal/cli"
	"github.com/MrSnakeDoc/hometools/internal/input"
	"github.com/MrSnakeDoc/hometools/internal/instapaper"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

func main() {
	var (
		urls        []string
		title       string
		description string
		folderID    string
		dryRun      bool
		noPrompt    bool
		verbose     bool
		showVersion bool
	)

	pflag.StringArrayVar(&urls, "url", nil, "bookmark URL to add (repeatable)")
	pflag.StringVar(&title, "title", "", "title for --url bookmarks")
	pflag.StringVar(&description, "description", "", "description for --url bookmarks")
	pflag.StringVar(&folderID, "folder-id", "", "target folder ID for --url bookmarks")
	pflag.BoolVar(&dryRun, "dry-run", false, "list what would be added without calling the API")
	pflag.BoolVar(&noPrompt, "no-prompt", false, "never prompt for credentials, fail instead")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bookmarkadd [flags] [input files...]\n\n")
		fmt.Fprintf(os.Stderr, "Input files may be .csv, .json, or pipe-delimited .txt.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String("bookmarkadd"))
		return
	}

	_ = godotenv.Load()

	level := "info"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, true)

	requests, err := collectRequests(pflag.Args(), urls, title, description, folderID)
	if err != nil {
		log.Error("❌ failed to load input", logger.Error(err))
		os.Exit(1)
	}
	if len(requests) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to add: provide input files or --url flags")
		pflag.Usage()
		os.Exit(2)
	}

	if dryRun {
		fmt.Printf("Would add %d bookmark(s):\n", len(requests))
		for _, req := range requests {
			line := "  " + req.URL
			if req.Title != "" {
				line += " (" + req.Title + ")"
			}
			fmt.Println(line)
		}
		return
	}

	creds, err := cli.ResolveCredentials(noPrompt)
	if err != nil {
		log.Error("❌ missing credentials", logger.Error(err))
		os.Exit(1)
	}

	client, err := instapaper.NewClient(creds.ConsumerKey, creds.ConsumerSecret, creds.Username, creds.Password, log)
	if err != nil {
		log.Error("❌ invalid configuration", logger.Error(err))
		os.Exit(1)
	}

	added, err := client.BulkAdd(context.Background(), requests)
	for _, bm := range added {
		fmt.Printf("✅ added %s (bookmark %d)\n", bm.URL, bm.BookmarkID)
	}
	if err != nil {
		log.Error("❌ bulk add stopped", logger.Error(err))
		fmt.Fprintf(os.Stderr, "added %d of %d bookmarks before the failure\n", len(added), len(requests))
		os.Exit(1)
	}
	fmt.Printf("Done: %d bookmark(s) added.\n", len(added))
}

// collectRequests merges file inputs with --url flags, files first.
func collectRequests(paths, urls []string, title, description, folderID string) ([]instapaper.BookmarkRequest, error) {
	var requests []instapaper.BookmarkRequest
	for _, path := range paths {
		loaded, err := input.Load(path)
		if err != nil {
			return nil, err
		}
		requests = append(requests, loaded...)
	}
	for _, u := range urls {
		requests = append(requests, instapaper.BookmarkRequest{
			URL:         u,
			Title:       title,
			Description: description,
			FolderID:    folderID,
		})
	}
	return requests, nil
}
