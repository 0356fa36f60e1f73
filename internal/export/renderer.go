package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
)

// Supported output formats.
const (
	FormatConsole  = "console"
	FormatMarkdown = "markdown"
	FormatPatch    = "patch"
	FormatJSON     = "json"
)

const unsupportedFormatTemplateConstant = "unsupported output format %q"

// Renderer writes a fetch result to an output stream.
type Renderer interface {
	Render(writer io.Writer, result fetch.FetchResult) error
}

// RendererOptions tunes renderers that support presentation choices.
type RendererOptions struct {
	Colorize bool
	Clock    history.Clock
}

// SupportedFormats lists the accepted format names in display order.
func SupportedFormats() []string {
	return []string{FormatConsole, FormatMarkdown, FormatPatch, FormatJSON}
}

// NewRenderer returns the renderer registered for format.
func NewRenderer(format string, options RendererOptions) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		return NewConsoleRenderer(options.Colorize, options.Clock), nil
	case FormatMarkdown:
		return MarkdownRenderer{}, nil
	case FormatPatch:
		return PatchRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplateConstant, format)
	}
}
