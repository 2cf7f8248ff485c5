// bookmarkexport downloads an Instapaper account's bookmarks and
// highlights and writes them to CSV or JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/MrSnakeDoc/hometools/internal/cli"
	"github.com/MrSnakeDoc/hometools/internal/export"
	"github.com/MrSnakeDoc/hometools/internal/instapaper"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

func main() {
	var (
		output         string
		format         string
		noText         bool
		noHighlights   bool
		highlightsOnly bool
		noPrompt       bool
		dryRun         bool
		verbose        bool
		showVersion    bool
	)

	pflag.StringVarP(&output, "output", "o", "instapaper_bookmarks.csv", "output file path")
	pflag.StringVar(&format, "format", "", "output format: csv or json (default: from extension)")
	pflag.BoolVar(&noText, "no-text", false, "skip fetching full article text")
	pflag.BoolVar(&noHighlights, "no-highlights", false, "skip highlights")
	pflag.BoolVar(&highlightsOnly, "highlights-only", false, "export only highlights")
	pflag.BoolVar(&noPrompt, "no-prompt", false, "never prompt for credentials, fail instead")
	pflag.BoolVar(&dryRun, "dry-run", false, "fetch and count, but write nothing")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String("bookmarkexport"))
		return
	}

	_ = godotenv.Load()

	level := "info"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, true)

	if format == "" {
		if strings.HasSuffix(strings.ToLower(output), ".json") {
			format = "json"
		} else {
			format = "csv"
		}
	}
	if format != "csv" && format != "json" {
		fmt.Fprintf(os.Stderr, "unsupported format %q: use csv or json\n", format)
		os.Exit(2)
	}
	if noHighlights && highlightsOnly {
		fmt.Fprintln(os.Stderr, "--no-highlights and --highlights-only are mutually exclusive")
		os.Exit(2)
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

	ctx := context.Background()

	fmt.Println("⏳ fetching bookmarks...")
	bookmarks, err := client.AllBookmarks(ctx)
	if err != nil {
		log.Error("❌ failed to fetch bookmarks", logger.Error(err))
		os.Exit(1)
	}
	fmt.Printf("✅ %d bookmarks\n", len(bookmarks))

	var highlights []instapaper.Highlight
	if !noHighlights {
		fmt.Println("⏳ fetching highlights...")
		for _, bm := range bookmarks {
			hls, err := client.Highlights(ctx, bm.BookmarkID)
			if err != nil {
				log.Warn("skipping highlights for bookmark",
					logger.Int64("bookmark_id", bm.BookmarkID),
					logger.Error(err))
				continue
			}
			highlights = append(highlights, hls...)
		}
		fmt.Printf("✅ %d highlights\n", len(highlights))
	}

	includeText := !noText && !highlightsOnly
	if includeText {
		fmt.Println("⏳ fetching article text (this can take a while)...")
		for i := range bookmarks {
			text, err := client.BookmarkText(ctx, bookmarks[i].BookmarkID)
			if err != nil {
				log.Warn("skipping text for bookmark",
					logger.Int64("bookmark_id", bookmarks[i].BookmarkID),
					logger.Error(err))
				continue
			}
			bookmarks[i].FullText = text
		}
	}

	if dryRun {
		fmt.Printf("Dry run: would write %d bookmarks and %d highlights to %s (%s).\n",
			len(bookmarks), len(highlights), output, format)
		return
	}

	if err := write(bookmarks, highlights, output, format, includeText, noHighlights, highlightsOnly); err != nil {
		log.Error("❌ export failed", logger.Error(err))
		os.Exit(1)
	}
}

// write routes the fetched records to the right files for the format.
// CSV keeps bookmarks and highlights in separate files; JSON nests them.
func write(bookmarks []instapaper.Bookmark, highlights []instapaper.Highlight,
	output, format string, includeText, noHighlights, highlightsOnly bool) error {

	if format == "json" {
		if highlightsOnly {
			bookmarks = nil
		}
		if err := export.JSON(bookmarks, highlights, output, includeText); err != nil {
			return err
		}
		fmt.Printf("✅ wrote %s\n", output)
		return nil
	}

	if !highlightsOnly {
		if err := export.BookmarksCSV(bookmarks, output, includeText); err != nil {
			return err
		}
		fmt.Printf("✅ wrote %s\n", output)
	}
	if !noHighlights {
		highlightsPath := output
		if !highlightsOnly {
			highlightsPath = export.HighlightsOutputPath(output)
		}
		if err := export.HighlightsCSV(highlights, highlightsPath); err != nil {
			return err
		}
		fmt.Printf("✅ wrote %s\n", highlightsPath)
	}
	return nil
}
