package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 60, c.API.RequestsPerWindow)
	require.Equal(t, 60, c.API.WindowSeconds)
	require.Empty(t, c.AI.Backend)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
ai:
  backend: gemini
  model: gemini-2.5-flash
chart: /etc/into-accounts/chart.yaml
api:
  base_url: https://ledger.example.com/v1
  requests_per_window: 30
accounts:
  personal:
    csv: ~/Downloads/personal.csv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	c, err := loadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "gemini", c.AI.Backend)
	require.Equal(t, "gemini-2.5-flash", c.AI.Model)
	require.Equal(t, "https://ledger.example.com/v1", c.API.BaseURL)
	require.Equal(t, 30, c.API.RequestsPerWindow)
	require.Equal(t, "~/Downloads/personal.csv", c.Accounts["personal"]["csv"])
}

func TestLoadConfigBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0644))
	_, err := loadConfig(dir)
	require.Error(t, err)
}
