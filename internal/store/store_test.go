package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

func sampleCommands(t *testing.T) []command.Command {
	t.Helper()
	var out []command.Command
	for _, pair := range [][2]string{
		{"list", "ls -la"},
		{"quote", `echo "hello world" && printf '%s\n' done`},
		{"unicode", "echo 日本語"},
	} {
		cmd, err := command.New(pair[0], pair[1])
		require.NoError(t, err)
		out = append(out, cmd)
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New("/data/commands.json", WithFs(fs))

	want := sampleCommands(t)
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoadRoundTripOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	s := New(path)

	cmd, err := command.New("list", "ls -la")
	require.NoError(t, err)
	require.NoError(t, s.Save([]command.Command{cmd}))

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cmd, got[0])

	entries, err := afero.ReadDir(afero.NewOsFs(), filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, DefaultFileName, entries[0].Name())
}

func TestLoadMissingFileReturnsEmptyList(t *testing.T) {
	s := New("/nope/commands.json", WithFs(afero.NewMemMapFs()))
	got, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadMalformedContentReturnsStoreError(t *testing.T) {
	cases := map[string]string{
		"syntax":        `[{"name": "a", "command": `,
		"wrong type":    `{"name": "a", "command": "b"}`,
		"missing field": `[{"name": "a"}]`,
		"blank name":    `[{"name": "  ", "command": "ls"}]`,
		"unknown field": `[{"name": "a", "command": "b", "shell": "zsh"}]`,
		"duplicate ids": `[{"id": "x", "name": "a", "command": "b"}, {"id": "x", "name": "c", "command": "d"}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/commands.json", []byte(content), 0o644))
			got, err := New("/commands.json", WithFs(fs)).Load()
			assert.Nil(t, got)
			var storeErr *StoreError
			require.True(t, errors.As(err, &storeErr), "expected StoreError, got %v", err)
			assert.Equal(t, "load", storeErr.Op)
		})
	}
}

func TestLoadAssignsIDsToLegacyRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `[
  {"name": "list", "command": "ls -la"},
  {"name": "up", "command": "cd C:\\MyProject && python main.py"}
]`
	require.NoError(t, afero.WriteFile(fs, "/commands.json", []byte(legacy), 0o644))

	got, err := New("/commands.json", WithFs(fs)).Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "list", got[0].Name)
	assert.Equal(t, `cd C:\MyProject && python main.py`, got[1].CommandLine)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestFailedSaveLeavesPreviousFileIntact(t *testing.T) {
	base := afero.NewMemMapFs()
	original := sampleCommands(t)[:1]
	require.NoError(t, New("/commands.json", WithFs(base)).Save(original))

	readOnly := New("/commands.json", WithFs(afero.NewReadOnlyFs(base)))
	err := readOnly.Save(sampleCommands(t))
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "save", storeErr.Op)

	got, err := readOnly.Load()
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSaveRejectsInvalidCommand(t *testing.T) {
	s := New("/commands.json", WithFs(afero.NewMemMapFs()))
	err := s.Save([]command.Command{{ID: "x", Name: "a"}})
	assert.ErrorIs(t, err, command.ErrCommandRequired)
}

func TestEncodeDecodeYAML(t *testing.T) {
	want := sampleCommands(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want, FormatYAML))
	assert.Contains(t, buf.String(), "command: ls -la")

	got, err := Decode(&buf, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeJSONReportsSchemaLocation(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"name": "ok", "command": "true"}, {"name": "bad"}]`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commands[1]")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("toml")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatFromPath("backup.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("backup.txt"))
}
