package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/notedex/configs"
	"github.com/Aman-CERP/notedex/internal/config"
)

func TestConfigInit_CreatesProjectConfig(t *testing.T) {
	// Given: a notes directory without a config
	isolateEnv(t)
	dir := notesDir(t, map[string]string{"trip.md": tripNote})

	// When: running config init
	stdout, _, err := execute(t, "config", "init", dir)

	// Then: the project template is written
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created configuration")
	assert.Equal(t, configs.ProjectConfigTemplate, readFile(t, filepath.Join(dir, ".notedex.yaml")))
}

func TestConfigInit_ExistingFileIsKept(t *testing.T) {
	// Given: an existing project config
	isolateEnv(t)
	dir := notesDir(t, map[string]string{".notedex.yaml": "index:\n  output_dir: idx\n"})

	// When: running config init without --force
	stdout, _, err := execute(t, "config", "init", dir)

	// Then: the file is untouched and the user is told how to replace it
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration already exists")
	assert.Contains(t, stdout, "--force")
	assert.Equal(t, "index:\n  output_dir: idx\n", readFile(t, filepath.Join(dir, ".notedex.yaml")))
}

func TestConfigInit_ForceBacksUp(t *testing.T) {
	// Given: an existing .yml project config
	isolateEnv(t)
	dir := notesDir(t, map[string]string{".notedex.yml": "watch:\n  debounce: 1s\n"})
	path := filepath.Join(dir, ".notedex.yml")

	// When: running config init --force
	stdout, _, err := execute(t, "config", "init", dir, "--force")

	// Then: the existing file is replaced in place and a backup kept
	require.NoError(t, err)
	assert.Contains(t, stdout, "Backup:")
	assert.Equal(t, configs.ProjectConfigTemplate, readFile(t, path))
	assert.NoFileExists(t, filepath.Join(dir, ".notedex.yaml"))

	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "watch:\n  debounce: 1s\n", readFile(t, backups[0]))
}

func TestConfigInit_User(t *testing.T) {
	// Given: no user config
	home := isolateEnv(t)

	// When: running config init --user
	_, _, err := execute(t, "config", "init", "--user")

	// Then: the user template is written under XDG_CONFIG_HOME
	require.NoError(t, err)
	path := filepath.Join(home, ".config", "notedex", "config.yaml")
	assert.Equal(t, configs.UserConfigTemplate, readFile(t, path))
	assert.True(t, config.UserConfigExists())
}

func TestConfigShow_Merged(t *testing.T) {
	// Given: a project config overriding the output directory
	isolateEnv(t)
	dir := notesDir(t, map[string]string{".notedex.yaml": "index:\n  output_dir: idx\n"})

	// When: showing the merged configuration
	stdout, _, err := execute(t, "config", "show", dir)

	// Then: the YAML carries the source line and the override
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# Configuration source: merged"))
	assert.Contains(t, stdout, "output_dir: idx")
	assert.Contains(t, stdout, "extension: .md")
}

func TestConfigShow_JSON(t *testing.T) {
	isolateEnv(t)
	dir := notesDir(t, nil)

	stdout, _, err := execute(t, "config", "show", dir, "--json")

	require.NoError(t, err)
	var got config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, ".md", got.Notes.Extension)
	assert.Equal(t, "500ms", got.Watch.Debounce)
}

func TestConfigShow_Sources(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		args  []string
		want  string
	}{
		{
			name: "defaults",
			args: []string{"--source", "defaults"},
			want: "# Configuration source: defaults (hardcoded)",
		},
		{
			name:  "project file",
			files: map[string]string{".notedex.yaml": "logging:\n  level: debug\n"},
			args:  []string{"--source", "project"},
			want:  "level: debug",
		},
		{
			name: "missing project file",
			args: []string{"--source", "project"},
			want: "No project configuration file found",
		},
		{
			name: "missing user file",
			args: []string{"--source", "user"},
			want: "No user configuration file found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			dir := notesDir(t, tt.files)

			stdout, _, err := execute(t, append([]string{"config", "show", dir}, tt.args...)...)

			require.NoError(t, err)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestConfigShow_InvalidSource(t *testing.T) {
	isolateEnv(t)
	dir := notesDir(t, nil)

	_, _, err := execute(t, "config", "show", dir, "--source", "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source: nope")
}

func TestConfigPath(t *testing.T) {
	// Given: a notes directory with a project config
	home := isolateEnv(t)
	dir := notesDir(t, map[string]string{".notedex.yaml": "version: 1\n"})

	// When: printing the config paths
	stdout, _, err := execute(t, "config", "path", dir)

	// Then: the user path comes first, then the project path
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.Join(home, ".config", "notedex", "config.yaml"), lines[0])
	assert.Equal(t, filepath.Join(dir, ".notedex.yaml"), lines[1])
}

func TestConfigPath_MissingNotesDir(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := execute(t, "config", "path", filepath.Join(t.TempDir(), "nope"))

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	_, statErr := os.Stat(strings.TrimSpace(stdout))
	assert.True(t, os.IsNotExist(statErr))
}
