package diff_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"github.com/temirov/repodiff/cmd/cli/diff"
	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	testRepositoryURLConstant = "https://github.com/octo/repo"
	testAuthorNameConstant    = "Test Author"
	testAuthorEmailConstant   = "author@example.com"
	testFileModeConstant      = 0o644
)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

type repositoryCloner struct {
	repository *git.Repository
	options    vcs.CloneOptions
	calls      int
}

func (cloner *repositoryCloner) Clone(_ context.Context, options vcs.CloneOptions) (vcs.WorkingCopy, error) {
	cloner.calls++
	cloner.options = options
	return vcs.NewGitWorkingCopy(cloner.repository), nil
}

type testCommit struct {
	when   time.Time
	writes map[string]string
}

func buildRepository(testInstance *testing.T) *git.Repository {
	testInstance.Helper()

	commits := []testCommit{
		{when: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC), writes: map[string]string{"main.go": "package main\n", "README.md": "hello\n"}},
		{when: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC), writes: map[string]string{"main.go": "package main\n\nfunc main() {}\n"}},
		{when: time.Date(2024, time.March, 9, 9, 0, 0, 0, time.UTC), writes: map[string]string{"README.md": "hello world\n"}},
	}

	filesystem := memfs.New()
	repository, initError := git.Init(memory.NewStorage(), filesystem)
	require.NoError(testInstance, initError)
	worktree, worktreeError := repository.Worktree()
	require.NoError(testInstance, worktreeError)

	for _, commit := range commits {
		for path, content := range commit.writes {
			require.NoError(testInstance, util.WriteFile(filesystem, path, []byte(content), testFileModeConstant))
			_, addError := worktree.Add(path)
			require.NoError(testInstance, addError)
		}
		_, commitError := worktree.Commit("change", &git.CommitOptions{
			Author: &object.Signature{Name: testAuthorNameConstant, Email: testAuthorEmailConstant, When: commit.when},
		})
		require.NoError(testInstance, commitError)
	}
	return repository
}

type commandRun struct {
	standardOutput string
	standardError  string
	err            error
	cloner         *repositoryCloner
}

func runDiffCommand(testInstance *testing.T, configuration *diff.CommandConfiguration, arguments ...string) commandRun {
	testInstance.Helper()

	cloner := &repositoryCloner{repository: buildRepository(testInstance)}
	builder := diff.CommandBuilder{
		Cloner: cloner,
		Clock:  fixedClock{instant: time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC)},
	}
	if configuration != nil {
		builder.ConfigurationProvider = func() diff.CommandConfiguration {
			return *configuration
		}
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	command.SetOut(&standardOutput)
	command.SetErr(&standardError)
	command.SetArgs(arguments)

	executionError := command.ExecuteContext(context.Background())
	return commandRun{
		standardOutput: standardOutput.String(),
		standardError:  standardError.String(),
		err:            executionError,
		cloner:         cloner,
	}
}

func TestDiffCommandRendersMarkdown(testInstance *testing.T) {
	run := runDiffCommand(testInstance, nil, testRepositoryURLConstant, "--extensions", ".go", "--format", "markdown")
	require.NoError(testInstance, run.err)

	require.True(testInstance, strings.HasPrefix(run.standardOutput, "# Diff for "+testRepositoryURLConstant+"\n\n_2024-02-29T12:00:00Z to 2024-03-07T12:00:00Z_\n"))
	require.Contains(testInstance, run.standardOutput, "\n## main.go\n\n```diff\n")
	require.Contains(testInstance, run.standardOutput, "+func main() {}\n")
	require.NotContains(testInstance, run.standardOutput, "README.md")

	require.Equal(testInstance, 1, run.cloner.calls)
	require.Equal(testInstance, testRepositoryURLConstant, run.cloner.options.RepositoryURL)
	require.Equal(testInstance, vcs.DefaultCloneDepth, run.cloner.options.Depth)
	require.Empty(testInstance, run.cloner.options.RelayURL)
}

func TestDiffCommandPrintsShareQuery(testInstance *testing.T) {
	run := runDiffCommand(testInstance, nil, "--repository", testRepositoryURLConstant, "-e", ".go", "-f", "patch", "--print-share")
	require.NoError(testInstance, run.err)

	require.Contains(testInstance, run.standardOutput, "Index: main.go\n")
	require.Equal(testInstance,
		"?repo=https%3A%2F%2Fgithub.com%2Focto%2Frepo&ext=.go&start=2024-02-29T12%3A00%3A00Z&end=2024-03-07T12%3A00%3A00Z\n",
		run.standardError,
	)
}

func TestDiffCommandReplaysShareQuery(testInstance *testing.T) {
	shareQuery := "repo=" + testRepositoryURLConstant + "&ext=.md&start=2024-03-01T00:00:00Z&end=2024-03-10T00:00:00Z"
	run := runDiffCommand(testInstance, nil, "--share", shareQuery, "--format", "markdown")
	require.NoError(testInstance, run.err)

	require.Contains(testInstance, run.standardOutput, "_2024-03-01T00:00:00Z to 2024-03-10T00:00:00Z_\n")
	require.Contains(testInstance, run.standardOutput, "\n## README.md\n")
	require.Contains(testInstance, run.standardOutput, "+hello world\n")
	require.NotContains(testInstance, run.standardOutput, "main.go")
}

func TestDiffCommandShareQueryExtensionsOverConfiguration(testInstance *testing.T) {
	configuration := diff.DefaultCommandConfiguration()
	configuration.Extensions = []string{".go"}
	window := "&start=2024-03-01T00:00:00Z&end=2024-03-10T00:00:00Z"

	testCases := []struct {
		name          string
		shareQuery    string
		expectedFiles []string
	}{
		{name: "empty_ext_selects_every_file", shareQuery: "repo=" + testRepositoryURLConstant + "&ext=" + window, expectedFiles: []string{"README.md", "main.go"}},
		{name: "absent_ext_uses_configuration", shareQuery: "repo=" + testRepositoryURLConstant + window, expectedFiles: []string{"main.go"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			run := runDiffCommand(subTest, &configuration, "--share", testCase.shareQuery, "--format", "json")
			require.NoError(subTest, run.err)

			var result fetch.FetchResult
			require.NoError(subTest, json.Unmarshal([]byte(run.standardOutput), &result))
			paths := make([]string, 0, len(result.Files))
			for _, file := range result.Files {
				paths = append(paths, file.Path)
			}
			require.Equal(subTest, testCase.expectedFiles, paths)
		})
	}
}

func TestDiffCommandFlagsOverrideShareQuery(testInstance *testing.T) {
	shareQuery := "repo=https://example.com/other/repo&ext=.md&start=2024-03-01T00:00:00Z&end=2024-03-10T00:00:00Z"
	run := runDiffCommand(testInstance, nil, testRepositoryURLConstant, "--share", shareQuery, "--extensions", ".go", "--format", "json")
	require.NoError(testInstance, run.err)

	var result fetch.FetchResult
	require.NoError(testInstance, json.Unmarshal([]byte(run.standardOutput), &result))
	require.Equal(testInstance, testRepositoryURLConstant, result.RepositoryURL)
	require.Len(testInstance, result.Files, 1)
	require.Equal(testInstance, "main.go", result.Files[0].Path)
	require.True(testInstance, result.StartSubstituted)
}

func TestDiffCommandUsesConfiguration(testInstance *testing.T) {
	configuration := diff.DefaultCommandConfiguration()
	configuration.Repository = testRepositoryURLConstant
	configuration.Extensions = []string{" .md "}
	configuration.Range = "2 weeks"
	configuration.Depth = 50
	configuration.RelayURL = "https://relay.example.com"
	configuration.Format = "Markdown"

	run := runDiffCommand(testInstance, &configuration)
	require.NoError(testInstance, run.err)

	require.Contains(testInstance, run.standardOutput, "_2024-02-22T12:00:00Z to 2024-03-07T12:00:00Z_\n")
	require.Equal(testInstance, 50, run.cloner.options.Depth)
	require.Equal(testInstance, "https://relay.example.com", run.cloner.options.RelayURL)
}

func TestDiffCommandWritesOutputFile(testInstance *testing.T) {
	outputPath := filepath.Join(testInstance.TempDir(), "diff.md")
	run := runDiffCommand(testInstance, nil, testRepositoryURLConstant, "--format", "markdown", "--output", outputPath)
	require.NoError(testInstance, run.err)
	require.Empty(testInstance, run.standardOutput)

	content, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(content), "## main.go")
}

func TestDiffCommandRendersConsoleSummary(testInstance *testing.T) {
	run := runDiffCommand(testInstance, nil, testRepositoryURLConstant, "--no-color")
	require.NoError(testInstance, run.err)

	require.Contains(testInstance, run.standardOutput, "octo/repo")
	require.Contains(testInstance, run.standardOutput, "main.go")
	require.Contains(testInstance, run.standardOutput, "+func main() {}")
}

func TestDiffCommandFailures(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedError   error
		expectedMessage string
	}{
		{name: "missing_repository", arguments: []string{"--format", "patch"}, expectedError: fetch.ErrRepositoryURLRequired},
		{name: "unknown_range", arguments: []string{testRepositoryURLConstant, "--range", "5y"}, expectedError: history.ErrUnknownDuration},
		{name: "unknown_format", arguments: []string{testRepositoryURLConstant, "--format", "html"}, expectedMessage: "unsupported output format \"html\""},
		{name: "invalid_share", arguments: []string{"--share", "repo=x&start=never&end=2024-03-10T00:00:00Z"}, expectedMessage: "invalid share query"},
		{name: "too_many_arguments", arguments: []string{testRepositoryURLConstant, "extra"}, expectedMessage: "accepts at most 1 arg(s), received 2"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			run := runDiffCommand(testInstance, nil, testCase.arguments...)
			require.Error(testInstance, run.err)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, run.err, testCase.expectedError)
			}
			if len(testCase.expectedMessage) > 0 {
				require.Contains(testInstance, run.err.Error(), testCase.expectedMessage)
			}
			require.Zero(testInstance, run.cloner.calls)
		})
	}
}

func TestRangesCommandListsLadder(testInstance *testing.T) {
	builder := diff.RangesCommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	var standardOutput bytes.Buffer
	command.SetOut(&standardOutput)
	command.SetArgs([]string{})
	require.NoError(testInstance, command.Execute())

	output := standardOutput.String()
	require.Contains(testInstance, output, "INDEX")
	for _, option := range history.DurationLadder() {
		require.Contains(testInstance, output, option.Label)
	}
	require.Contains(testInstance, output, "*")
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := diff.DefaultConfigurationValues("tools.diff")
	require.Equal(testInstance, "1w", values["tools.diff.range"])
	require.Equal(testInstance, "console", values["tools.diff.format"])
	require.Equal(testInstance, 1000, values["tools.diff.depth"])
	require.Equal(testInstance, 4, values["tools.diff.concurrency"])
	require.Equal(testInstance, []string{}, values["tools.diff.extensions"])
}
