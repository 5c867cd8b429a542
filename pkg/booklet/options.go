package booklet

import (
	"fmt"
	"strings"
)

// Options configures a conversion run.
type Options struct {
	// File is a single source document. Mutually exclusive with Folder.
	File string
	// Folder holds source documents as its immediate entries.
	Folder string
	// Output is the path of the generated document.
	Output string

	// StripTitleNumbers removes numbering noise from document titles.
	StripTitleNumbers bool
	TitleMaxLength    int
	ImageWidthMM      float64
}

// Validate checks that exactly one input is given and an output is set.
func (o Options) Validate() error {
	file := strings.TrimSpace(o.File)
	folder := strings.TrimSpace(o.Folder)
	switch {
	case file != "" && folder != "":
		return fmt.Errorf("%w: both a file and a folder were given", ErrInvalidConfig)
	case file == "" && folder == "":
		return fmt.Errorf("%w: neither a file nor a folder was given", ErrInvalidConfig)
	case strings.TrimSpace(o.Output) == "":
		return fmt.Errorf("%w: no output path", ErrInvalidConfig)
	case o.TitleMaxLength < 0:
		return fmt.Errorf("%w: negative title length %d", ErrInvalidConfig, o.TitleMaxLength)
	case o.ImageWidthMM < 0:
		return fmt.Errorf("%w: negative image width %g", ErrInvalidConfig, o.ImageWidthMM)
	}
	return nil
}

func (o Options) withDefaults() Options {
	o.File = strings.TrimSpace(o.File)
	o.Folder = strings.TrimSpace(o.Folder)
	if o.TitleMaxLength == 0 {
		o.TitleMaxLength = DefaultTitleMaxLength
	}
	if o.ImageWidthMM == 0 {
		o.ImageWidthMM = DefaultImageWidthMM
	}
	return o
}
