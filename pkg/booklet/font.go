package booklet

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// LoadFont loads the TrueType font used for annotations. An empty path
// searches the usual system locations and falls back to the built-in Go
// Regular face.
func LoadFont(path string) (*truetype.Font, error) {
	if path != "" {
		f, err := loadFontFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load font %s: %w", path, err)
		}
		return f, nil
	}

	for _, p := range systemFontPaths() {
		if f, err := loadFontFromFile(p); err == nil {
			Logger().Debug("using system font", "path", p)
			return f, nil
		}
	}
	return truetype.Parse(goregular.TTF)
}

func loadFontFromFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return truetype.Parse(data)
}

// systemFontPaths lists sans-serif fonts with Latin and Cyrillic coverage.
func systemFontPaths() []string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = "C:\\Windows"
		}
		return []string{
			filepath.Join(windir, "Fonts", "arial.ttf"),
			filepath.Join(windir, "Fonts", "tahoma.ttf"),
		}
	case "darwin":
		return []string{
			"/Library/Fonts/Arial.ttf",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
		}
	default:
		return []string{
			"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/TTF/DejaVuSans.ttf",
		}
	}
}
