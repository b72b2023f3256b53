package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"expect", "exception", "stats", "observe", "sweep"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	// The check runs in PersistentPreRunE, so a leaf command must execute.
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--tenant", "acme", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_AcceptsValidFormats(t *testing.T) {
	for _, format := range ValidFormats {
		db := filepath.Join(t.TempDir(), "flow.db")
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"stats", "--tenant", "acme", "--db", db, "--format", format})

		assert.NoError(t, cmd.Execute(), "format %q should be accepted", format)
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestLoadConfig_DBFlagOverride(t *testing.T) {
	cfg, err := loadConfig(&RootOptions{DB: "/tmp/override.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := loadConfig(&RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.Path)
}
