// pdfbooklet - lay PDF pages out on duplex printable booklet sheets
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
	"github.com/novvoo/pdfbooklet/pkg/docx"
	"github.com/novvoo/pdfbooklet/pkg/pdf"
)

const version = "1.0.0"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pdfbooklet", flag.ContinueOnError)

	// Define flags
	file := fs.String("f", "", "single source document")
	folder := fs.String("d", "", "folder whose entries are source documents")
	output := fs.String("o", "", "output document (.pdf or .docx)")
	resolution := fs.Float64("r", pdf.DefaultDPI, "resolution in DPI")
	width := fs.Float64("w", booklet.DefaultImageWidthMM, "printed page image width in mm")
	stripNumbers := fs.Bool("strip-numbers", false, "strip numbering from document titles")
	titleMax := fs.Int("title-max", booklet.DefaultTitleMaxLength, "maximum title length in characters")
	fontPath := fs.String("font", "", "TrueType font for annotations")
	quality := fs.Int("quality", 90, "JPEG quality of embedded page images")
	gray := fs.Bool("gray", false, "render pages in grayscale")
	noBorders := fs.Bool("no-borders", false, "do not draw cell borders (PDF output)")
	ownerPwd := fs.String("opw", "", "owner password")
	userPwd := fs.String("upw", "", "user password")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	quiet := fs.Bool("q", false, "don't print any messages")
	printVersion := fs.Bool("v", false, "print version info")
	help := fs.Bool("h", false, "print usage information")
	fs.BoolVar(help, "help", false, "print usage information")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "pdfbooklet version %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: pdfbooklet [options] (-f <document> | -d <folder>) -o <output>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if *printVersion {
		fmt.Println("pdfbooklet version " + version)
		return exitOK
	}
	if *help {
		fs.Usage()
		return exitOK
	}

	if !*quiet {
		booklet.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(*logLevel),
		})))
	}

	opts := booklet.Options{
		File:              *file,
		Folder:            *folder,
		Output:            *output,
		StripTitleNumbers: *stripNumbers,
		TitleMaxLength:    *titleMax,
		ImageWidthMM:      *width,
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return exitConfig
	}
	if *resolution <= 0 {
		fmt.Fprintf(os.Stderr, "Error: %v: resolution must be positive\n", booklet.ErrInvalidConfig)
		return exitConfig
	}

	sink, err := newSink(*output, *quality, *noBorders)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}

	ttf, err := booklet.LoadFont(*fontPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}

	renderer := pdf.NewRenderer(pdf.RenderOptions{
		DPI:      *resolution,
		Gray:     *gray,
		OwnerPwd: *ownerPwd,
		UserPwd:  *userPwd,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := booklet.NewDriver(opts, renderer, booklet.NewAnnotator(ttf), sink)
	stats, err := driver.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, booklet.ErrInvalidConfig) {
			return exitConfig
		}
		return exitFailure
	}

	if !*quiet {
		fmt.Printf("Wrote %s (%d documents, %d pages, %d sheets)\n",
			*output, stats.Documents, stats.Pages, stats.Sheets)
	}
	return exitOK
}

// newSink picks the output format from the file extension.
func newSink(output string, quality int, noBorders bool) (booklet.Sink, error) {
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".pdf":
		return pdf.NewSheetWriter(pdf.WriterOptions{JPEGQuality: quality, NoBorders: noBorders}), nil
	case ".docx":
		return docx.NewWriter(docx.Options{JPEGQuality: quality}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q", booklet.ErrInvalidConfig, ext)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
