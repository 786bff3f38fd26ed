package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, name, line string) Command {
	t.Helper()
	cmd, err := New(name, line)
	require.NoError(t, err)
	return cmd
}

func TestNewTrimsAndValidates(t *testing.T) {
	cmd, err := New("  list ", " ls -la ")
	require.NoError(t, err)
	assert.Equal(t, "list", cmd.Name)
	assert.Equal(t, "ls -la", cmd.CommandLine)
	assert.NotEmpty(t, cmd.ID)

	_, err = New(" ", "ls")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = New("list", "")
	assert.ErrorIs(t, err, ErrCommandRequired)
}

func TestDuplicateLeavesOriginalUnchanged(t *testing.T) {
	original := mustNew(t, "build", "make all")
	list := List{original}

	out, dup, err := list.Duplicate(original.ID)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, original, out[0])
	assert.Equal(t, "build (Copy)", dup.Name)
	assert.Equal(t, original.CommandLine, dup.CommandLine)
	assert.NotEqual(t, original.ID, dup.ID)
	assert.Len(t, list, 1, "receiver must not be mutated")
}

func TestFindResolution(t *testing.T) {
	a := Command{ID: "aaaa1111-0000", Name: "alpha", CommandLine: "true"}
	b := Command{ID: "aaaa2222-0000", Name: "beta", CommandLine: "true"}
	c := Command{ID: "cccc3333-0000", Name: "beta", CommandLine: "false"}
	list := List{a, b, c}

	got, err := list.Find("aaaa2222-0000")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	got, err = list.Find("alpha")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = list.Find("beta")
	assert.ErrorIs(t, err, ErrAmbiguous)

	got, err = list.Find("cccc")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = list.Find("aaaa")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = list.Find("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndRemove(t *testing.T) {
	a := mustNew(t, "a", "echo a")
	b := mustNew(t, "b", "echo b")
	list := List{a, b}

	out, updated, err := list.Update(b.ID, "bee", "echo bee")
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "bee", out[1].Name)
	assert.Equal(t, "b", list[1].Name)

	_, _, err = list.Update(b.ID, "bee", " ")
	assert.ErrorIs(t, err, ErrCommandRequired)

	out, removed := out.Remove(a.ID, "missing")
	assert.Equal(t, 1, removed)
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	a := mustNew(t, "a", "echo a")
	list, err := List{}.Add(a)
	require.NoError(t, err)

	_, err = list.Add(a)
	assert.Error(t, err)
}
