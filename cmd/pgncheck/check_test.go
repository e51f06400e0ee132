package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.pgn", "[Event \"E\"]\n[Site \"S\"]\n[Date \"2024.01.01\"]\n\n1. e4 e5 (1... c5) 2. Nf3 *\n")
	bare := writeFile(t, dir, "bare.pgn", "1. e4 e5 *\n")
	bad := writeFile(t, dir, "bad.pgn", "1. e4 e5 2. Ke3 *\n")

	reports, err := checkFiles(context.Background(), []string{good, bare, bad}, checkOptions{workers: 2})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, good, reports[0].path)
	assert.True(t, reports[0].validation.IsValid)
	assert.True(t, reports[1].validation.IsValid)
	assert.Len(t, reports[1].validation.Warnings, 3)
	assert.False(t, reports[2].validation.IsValid)

	var out bytes.Buffer
	assert.False(t, printReports(&out, reports, checkOptions{}))
	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, good+": ok", lines[0])
	assert.Contains(t, out.String(), bad+": invalid\n  error: ")

	reports, err = checkFiles(context.Background(), []string{bare}, checkOptions{strict: true})
	require.NoError(t, err)
	assert.False(t, reports[0].validation.IsValid)
}

func TestCheckFilesExport(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.pgn", "[Event \"E\"]\n\n1. e4 e5 (1... c5) 2. Nf3 *\n")

	opts := checkOptions{export: true, nested: true}
	reports, err := checkFiles(context.Background(), []string{good}, opts)
	require.NoError(t, err)
	require.Len(t, reports[0].puzzles, 1)

	var out bytes.Buffer
	assert.True(t, printReports(&out, reports, opts))
	assert.Contains(t, out.String(), "[Event \"E\"]")
	assert.Contains(t, out.String(), "1. e4 e5 (1... c5) 2. Nf3 *")
}

func TestCheckFilesMissingFile(t *testing.T) {
	_, err := checkFiles(context.Background(), []string{filepath.Join(t.TempDir(), "none.pgn")}, checkOptions{})
	assert.Error(t, err)
}
