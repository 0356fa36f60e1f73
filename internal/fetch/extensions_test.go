package fetch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repodiff/internal/fetch"
)

func TestParseExtensions(testInstance *testing.T) {
	require.Equal(testInstance, []string{".js", ".ts"}, fetch.ParseExtensions(" .js, ,.ts ,"))
	require.Empty(testInstance, fetch.ParseExtensions(""))
	require.Empty(testInstance, fetch.ParseExtensions(" , "))
}

func TestExtensionFilterMatchesExactSuffix(testInstance *testing.T) {
	filter := fetch.ExtensionFilter{".js"}
	require.Equal(testInstance, []string{"a.js"}, filter.Select([]string{"a.js", "a.jsx", "b.py"}))
	require.False(testInstance, filter.Matches("UPPER.JS"))
}

func TestEmptyExtensionFilterAcceptsEverything(testInstance *testing.T) {
	paths := []string{"b.py", "a.js", "Makefile"}
	require.Equal(testInstance, paths, fetch.ExtensionFilter(nil).Select(paths))
	require.Equal(testInstance, paths, fetch.ExtensionFilter(fetch.ParseExtensions("")).Select(paths))
}
