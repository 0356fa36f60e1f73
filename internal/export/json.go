package export

import (
	"encoding/json"
	"io"

	"github.com/temirov/repodiff/internal/fetch"
)

const jsonIndentConstant = "  "

// JSONRenderer writes the result as an indented JSON document.
type JSONRenderer struct{}

// Render encodes result as JSON.
func (JSONRenderer) Render(writer io.Writer, result fetch.FetchResult) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(result)
}
