package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constellation/internal/notify"
)

// run executes one CLI invocation against a sqlite workspace in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})
	err := execute(append([]string{"--data-dir", dir, "--backend", "sqlite", "--log-level", "error"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "constellation %s", strings.Join(args, " "))
	return out
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "constellation", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	for _, c := range []string{"doc", "state", "actor", "relation", "undo", "redo", "repl", "config"} {
		found, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err, c)
		assert.Equal(t, c, found.Name())
	}
	assert.True(t, docCmd.HasSubCommands())
	assert.True(t, stateCmd.HasSubCommands())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "state_ABCDEFGH", shortID("state_01J0000000ZZZZABCDEFGH"))
	assert.Equal(t, "doc_0a1b2c3d", shortID("doc_9f8e7d6c-aaaa-bbbb-cccc-00000a1b2c3d"))
	assert.Equal(t, "short", shortID("short"))
}

func TestDocumentsPersistAcrossInvocations(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "doc", "new", "Supply", "chain")
	assert.Contains(t, out, "Created doc_")

	out = mustRun(t, dir, "doc", "tabs")
	assert.Contains(t, out, "Supply chain")
	assert.Contains(t, out, "* 1")

	mustRun(t, dir, "doc", "new", "Second")
	mustRun(t, dir, "doc", "switch", "Supply chain")

	out = mustRun(t, dir, "--json", "doc", "tabs")
	var tabs []struct {
		Title  string `json:"title"`
		Active bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tabs))
	require.Len(t, tabs, 2)
	assert.True(t, tabs[0].Active)
	assert.False(t, tabs[1].Active)

	mustRun(t, dir, "doc", "rename", "Second", "Renamed")
	out = mustRun(t, dir, "doc", "list")
	assert.Contains(t, out, "Renamed")
	assert.NotContains(t, out, "Second")
}

func TestEditAndShow(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "doc", "new", "Org")
	mustRun(t, dir, "actor", "add", "Alice", "--type", "person", "--at", "10,20")
	mustRun(t, dir, "actor", "add", "Acme", "--type", "organization")
	mustRun(t, dir, "relation", "add", "Alice", "Acme", "--type", "reports-to", "--label", "works at")

	out := mustRun(t, dir, "show")
	assert.Contains(t, out, "Actors (2)")
	assert.Contains(t, out, "Alice → Acme")
	assert.Contains(t, out, "(10, 20)")

	mustRun(t, dir, "actor", "rm", "Alice")
	out = mustRun(t, dir, "show")
	assert.Contains(t, out, "Actors (1)")
	assert.Contains(t, out, "Relations (0)")
}

func TestStateBranchAndDiff(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "doc", "new", "Branches")
	mustRun(t, dir, "actor", "add", "Alice", "--type", "person")
	mustRun(t, dir, "state", "new", "Future")
	mustRun(t, dir, "actor", "add", "Bob", "--type", "person")

	out := mustRun(t, dir, "state", "list")
	assert.Contains(t, out, "Initial State")
	assert.Contains(t, out, "Future")

	out = mustRun(t, dir, "state", "diff", "Initial State", "Future")
	assert.Contains(t, out, "+ actor")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "actors +1 ~0 -0")

	out = mustRun(t, dir, "state", "diff", "--text", "Initial State", "Future")
	assert.Contains(t, out, "+")
	assert.Contains(t, out, `"Bob"`)

	mustRun(t, dir, "state", "switch", "Initial State")
	out = mustRun(t, dir, "show")
	assert.Contains(t, out, "Actors (1)")

	_, err := run(t, dir, "state", "delete", "Initial State")
	assert.Error(t, err)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "doc", "new", "Doomed")

	_, err := run(t, dir, "doc", "delete", "Doomed")
	require.Error(t, err)
	out := mustRun(t, dir, "doc", "list")
	assert.Contains(t, out, "Doomed")

	mustRun(t, dir, "--yes", "doc", "delete", "Doomed")
	out = mustRun(t, dir, "doc", "list")
	assert.Contains(t, out, "No documents.")
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "doc", "new", "Exported")
	mustRun(t, dir, "actor", "add", "Alice", "--type", "person")

	path := filepath.Join(t.TempDir(), "out", "exported.json")
	out := mustRun(t, dir, "doc", "export", "Exported", path)
	assert.Contains(t, out, "blake3:")
	_, err := os.Stat(path)
	require.NoError(t, err)

	out = mustRun(t, dir, "doc", "import", path)
	assert.Contains(t, out, "Imported")

	out = mustRun(t, dir, "doc", "import", filepath.Join(filepath.Dir(path), "*.json"))
	assert.Contains(t, out, "Imported 1 of 1")

	out = mustRun(t, dir, "doc", "tabs")
	assert.Equal(t, 3, strings.Count(out, "Exported"))
}

func TestReplKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(`doc new "Repl doc"
actor add Alice --type person
actor add Bob --type person
undo
show
redo
history
repl
exit
`))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := execute([]string{"--data-dir", dir, "--backend", "sqlite", "--log-level", "error", "repl"})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Undid: Add actor")
	assert.Contains(t, s, "Actors (1)")
	assert.Contains(t, s, "Redid: Add actor")
	assert.Contains(t, s, "undo 2, redo 0")
}

func TestReplResetsFlags(t *testing.T) {
	dir := t.TempDir()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("doc new A\n--json doc tabs\ndoc tabs\n"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	require.NoError(t, execute([]string{"--data-dir", dir, "--backend", "sqlite", "--log-level", "error", "repl"}))
	s := out.String()
	assert.Contains(t, s, `"title": "A"`)
	assert.Contains(t, s, "* 1  doc_")
}

func TestConfigCommand(t *testing.T) {
	out := mustRun(t, t.TempDir(), "config")
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "workspace.db")
}

func TestPromptConfirmer(t *testing.T) {
	var msg bytes.Buffer
	c := &promptConfirmer{in: strings.NewReader("y\n"), out: &msg}
	ok, err := c.Confirm(context.Background(), notify.ConfirmOptions{Title: "Delete", Message: "Sure?"})
	require.NoError(t, err)
	assert.False(t, ok, "non-terminal input never confirms")
	assert.Contains(t, msg.String(), "--yes")

	c.yes = func() bool { return true }
	ok, err = c.Confirm(context.Background(), notify.ConfirmOptions{})
	require.NoError(t, err)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Confirm(ctx, notify.ConfirmOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
