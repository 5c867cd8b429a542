package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/novvoo/pdfbooklet/pkg/booklet"
)

// PopplerRenderer rasterises PDF pages with poppler's pdftoppm. Each page is
// rendered into its own PNG in a per-document temporary directory; the file
// is removed as soon as the page raster is released.
type PopplerRenderer struct {
	options RenderOptions
}

// NewPopplerRenderer creates a poppler backed renderer
func NewPopplerRenderer(options RenderOptions) *PopplerRenderer {
	return &PopplerRenderer{options: options.withDefaults()}
}

// Open checks the document with pdfinfo and prepares its raster directory.
func (r *PopplerRenderer) Open(ctx context.Context, path string) (booklet.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	pages, err := r.countPages(ctx, path)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(r.options.TempDir, "pdfbooklet-")
	if err != nil {
		return nil, fmt.Errorf("create raster directory: %w", err)
	}
	return &popplerSource{r: r, path: path, pages: pages, dir: dir}, nil
}

func (r *PopplerRenderer) passwordArgs() []string {
	var args []string
	if r.options.OwnerPwd != "" {
		args = append(args, "-opw", r.options.OwnerPwd)
	}
	if r.options.UserPwd != "" {
		args = append(args, "-upw", r.options.UserPwd)
	}
	return args
}

func (r *PopplerRenderer) countPages(ctx context.Context, path string) (int, error) {
	args := append(r.passwordArgs(), path)
	cmd := exec.CommandContext(ctx, r.options.Pdfinfo, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parsePageCount(out)
}

// parsePageCount extracts the "Pages:" field from pdfinfo output.
func parsePageCount(output []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid page count %q", fields[1])
		}
		return n, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("failed to determine page count from pdfinfo output")
}

type popplerSource struct {
	r     *PopplerRenderer
	path  string
	pages int
	dir   string
}

func (s *popplerSource) NumPages() int { return s.pages }

func (s *popplerSource) Render(ctx context.Context, index int) (*booklet.Raster, error) {
	if index < 0 || index >= s.pages {
		return nil, fmt.Errorf("invalid page number: %d", index+1)
	}
	opts := s.r.options
	pageNum := strconv.Itoa(index + 1)
	prefix := filepath.Join(s.dir, "page-"+pageNum)

	args := []string{
		"-png",
		"-r", strconv.FormatFloat(opts.DPI, 'f', -1, 64),
		"-f", pageNum,
		"-l", pageNum,
		"-singlefile",
	}
	if opts.Gray {
		args = append(args, "-gray")
	}
	args = append(args, s.r.passwordArgs()...)
	args = append(args, s.path, prefix)

	cmd := exec.CommandContext(ctx, opts.Pdftoppm, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %s: %w: %s", pageNum, err, strings.TrimSpace(stderr.String()))
	}

	file := prefix + ".png"
	img, err := decodePNG(file)
	if err != nil {
		_ = os.Remove(file)
		return nil, err
	}
	return booklet.NewRaster(img, func() error {
		return os.Remove(file)
	}), nil
}

func (s *popplerSource) Close() error {
	return os.RemoveAll(s.dir)
}

func decodePNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return toRGBA(img), nil
}
