package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/ruleset"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("good.yaml", "campaigns:\n  - {name: prices, type: price_test}\n")
	write("bad.yml", "campaigns:\n  - {name: a, type: mystery}\n")
	write("notes.txt", "ignored")

	results, err := scan(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]result{}
	for _, r := range results {
		byName[filepath.Base(r.path)] = r
	}
	require.NoError(t, byName["good.yaml"].err)
	require.Equal(t, []string{"prices"}, byName["good.yaml"].names)
	require.ErrorIs(t, byName["bad.yml"].err, ruleset.ErrInvalidRuleset)
}

func TestScanMissingDir(t *testing.T) {
	_, err := scan(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
