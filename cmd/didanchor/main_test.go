package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.New("NOOP")
}

// withTempWD switches the process working directory to a fresh temp dir for
// the duration of the test, since init/anchor/resolve all read and write
// config.DefaultPath relative to the current directory.
func withTempWD(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestRunNoArgsIsValidationError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)
	require.Equal(t, exitValidationError, code)
}

func TestRunUnknownSubcommandIsValidationError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"bogus"}, &stdout, &stderr)
	require.Equal(t, exitValidationError, code)
}

func TestRunInitWritesConfig(t *testing.T) {
	withTempWD(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"init"}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code)

	_, err := os.Stat("anchor_config.yaml")
	require.NoError(t, err)
}

func TestRunAnchorNoDocsIsValidationError(t *testing.T) {
	withTempWD(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"anchor"}, &stdout, &stderr)
	require.Equal(t, exitValidationError, code)
}

func writeDoc(t *testing.T, dir, name string, doc wireDocument) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRunAnchorCommitsOneDocument(t *testing.T) {
	withTempWD(t)
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	docPath := writeDoc(t, dir, "alpha.json", wireDocument{
		ID:      "did:example:alpha",
		Payload: map[string]any{"v": 1.0},
	})

	code := run([]string{"anchor", docPath}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	require.Contains(t, stdout.String(), "committed alias")
}

func TestRunAnchorRejectsMalformedDocument(t *testing.T) {
	withTempWD(t)
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("not json"), 0o600))

	code := run([]string{"anchor", badPath}, &stdout, &stderr)
	require.Equal(t, exitValidationError, code)
}

func TestRunResolveWrongArgCountIsValidationError(t *testing.T) {
	withTempWD(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"resolve"}, &stdout, &stderr)
	require.Equal(t, exitValidationError, code)
}

func TestRunResolveUnknownDIDReportsNotFound(t *testing.T) {
	withTempWD(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"resolve", "some-alias:did:example:alpha"}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code)
	require.Contains(t, stdout.String(), "unable to resolve")
}
