package export

import (
	"io"
	"strings"

	"github.com/temirov/repodiff/internal/fetch"
)

// PatchRenderer writes every file's header and hunks back to back, suitable for piping into patch tools.
type PatchRenderer struct{}

// Render writes the concatenated patches of result.
func (PatchRenderer) Render(writer io.Writer, result fetch.FetchResult) error {
	patchBuilder := &strings.Builder{}
	for _, fileDiff := range result.Files {
		patchBuilder.WriteString(fileDiff.Header)
		patchBuilder.WriteString(fileDiff.PatchText)
	}
	_, writeError := io.WriteString(writer, patchBuilder.String())
	return writeError
}
