package patch

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// DefaultContextLines is the number of unchanged lines surrounding each hunk.
	DefaultContextLines = 4
	// HeaderLineCount is the number of header lines preceding the hunks of every generated patch.
	HeaderLineCount = 4

	indexLineTemplateConstant       = "Index: %s\n"
	separatorLineConstant           = "===================================================================\n"
	oldFileLineTemplateConstant     = "--- %s\t%s\n"
	newFileLineTemplateConstant     = "+++ %s\t%s\n"
	lineTerminatorConstant          = "\n"
	missingNewlineMarkerConstant    = "\\ No newline at end of file\n"
	patchGenerationTemplateConstant = "failed to generate patch for %s: %w"
	carriageReturnConstant          = "\r"
	escapedLineFeedConstant         = `\n`
	escapedCarriageReturnConstant   = `\r`
)

// headerFieldEscaper keeps every header field on one line so the header length never varies.
var headerFieldEscaper = strings.NewReplacer(lineTerminatorConstant, escapedLineFeedConstant, carriageReturnConstant, escapedCarriageReturnConstant)

// Generator creates unified patches with a header of known length.
type Generator interface {
	CreatePatch(path string, oldContent string, newContent string, oldLabel string, newLabel string) (string, error)
	HeaderLineCount() int
}

// UnifiedGenerator implements Generator with go-difflib.
type UnifiedGenerator struct {
	ContextLines int
}

// NewUnifiedGenerator constructs a generator using DefaultContextLines.
func NewUnifiedGenerator() *UnifiedGenerator {
	return &UnifiedGenerator{ContextLines: DefaultContextLines}
}

// HeaderLineCount reports the fixed header size of generated patches.
func (generator *UnifiedGenerator) HeaderLineCount() int {
	return HeaderLineCount
}

// CreatePatch renders the unified patch turning oldContent into newContent.
// The header is always present; identical contents yield a header with no hunks.
// Line breaks in path or labels are written as \n and \r escapes.
func (generator *UnifiedGenerator) CreatePatch(path string, oldContent string, newContent string, oldLabel string, newLabel string) (string, error) {
	contextLines := generator.ContextLines
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}

	headerPath := headerFieldEscaper.Replace(path)
	patchBuilder := &strings.Builder{}
	fmt.Fprintf(patchBuilder, indexLineTemplateConstant, headerPath)
	patchBuilder.WriteString(separatorLineConstant)
	fmt.Fprintf(patchBuilder, oldFileLineTemplateConstant, headerPath, headerFieldEscaper.Replace(oldLabel))
	fmt.Fprintf(patchBuilder, newFileLineTemplateConstant, headerPath, headerFieldEscaper.Replace(newLabel))

	hunkError := difflib.WriteUnifiedDiff(patchBuilder, difflib.UnifiedDiff{
		A:       splitPatchLines(oldContent),
		B:       splitPatchLines(newContent),
		Context: contextLines,
	})
	if hunkError != nil {
		return "", fmt.Errorf(patchGenerationTemplateConstant, path, hunkError)
	}

	return patchBuilder.String(), nil
}

// splitPatchLines splits content into newline-terminated lines. A final line without
// a terminator carries the missing newline marker so it never matches a terminated line.
func splitPatchLines(content string) []string {
	if len(content) == 0 {
		return nil
	}

	lines := strings.SplitAfter(content, lineTerminatorConstant)
	if len(lines[len(lines)-1]) == 0 {
		return lines[:len(lines)-1]
	}

	lines[len(lines)-1] += lineTerminatorConstant + missingNewlineMarkerConstant
	return lines
}
