package conffile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/target"
)

const systemChrony = "# Use public servers from the pool.ntp.org project.\npool system.org iburst\n\nrtcsync\nmakestep 1.0 3\n"

func TestLayeredWithFragment(t *testing.T) {
	ctx := context.Background()
	fs := target.NewMemory(map[string]string{
		DefaultChronyConfPath:   systemChrony,
		DefaultPoolFragmentPath: "pool frag.org iburst\n",
	})
	l := NewLayered(fs, "", "")
	require.NoError(t, l.Load(ctx))
	assert.True(t, l.FragmentExists())

	assert.Equal(t, map[string]Options{
		"system.org": {Flag("iburst")},
		"frag.org":   {Flag("iburst")},
	}, l.Pools())

	require.NoError(t, l.AddPool("new.org", nil))
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, "pool frag.org iburst\npool new.org\n", fs.Content(DefaultPoolFragmentPath))
	assert.Equal(t, systemChrony, fs.Content(DefaultChronyConfPath))

	require.NoError(t, l.ModifyPool("system.org", "changed.org", DefaultPoolOptions()))
	l.DeletePool("frag.org")
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, "# Use public servers from the pool.ntp.org project.\npool changed.org iburst\n\nrtcsync\nmakestep 1.0 3\n", fs.Content(DefaultChronyConfPath))
	assert.Equal(t, "pool new.org\n", fs.Content(DefaultPoolFragmentPath))
}

func TestLayeredWithoutFragment(t *testing.T) {
	ctx := context.Background()
	fs := target.NewMemory(map[string]string{DefaultChronyConfPath: "rtcsync\n"})
	l := NewLayered(fs, "", "")
	require.NoError(t, l.Load(ctx))
	assert.False(t, l.FragmentExists())

	// nothing changed, nothing written, no fragment created
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, []string{DefaultChronyConfPath}, fs.Paths())

	require.NoError(t, l.AddServer("ntp.example.com", Options{Flag("iburst")}))
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, "rtcsync\nserver ntp.example.com iburst\n", fs.Content(DefaultChronyConfPath))
	assert.Equal(t, []string{DefaultChronyConfPath}, fs.Paths())
	assert.Equal(t, map[string]Options{"ntp.example.com": {Flag("iburst")}}, l.Servers())
}

func TestLayeredFragmentWinsOnDuplicates(t *testing.T) {
	ctx := context.Background()
	fs := target.NewMemory(map[string]string{
		DefaultChronyConfPath:   "pool same.org\nrefclock SHM 0 refid GPS\n",
		DefaultPoolFragmentPath: "pool same.org iburst\n",
	})
	l := NewLayered(fs, "", "")
	require.NoError(t, l.Load(ctx))

	assert.Equal(t, map[string]Options{"same.org": {Flag("iburst")}}, l.Pools())
	assert.True(t, l.HardwareClock())

	l.DeletePool("same.org")
	assert.Empty(t, l.Pools())

	l.ClearSources()
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, "refclock SHM 0 refid GPS\n", fs.Content(DefaultChronyConfPath))
	assert.Equal(t, "", fs.Content(DefaultPoolFragmentPath))
}

func TestLayeredRejectsInvalidAddress(t *testing.T) {
	ctx := context.Background()
	fs := target.NewMemory(map[string]string{
		DefaultChronyConfPath:   systemChrony,
		DefaultPoolFragmentPath: "pool frag.org iburst\n",
	})
	l := NewLayered(fs, "", "")
	require.NoError(t, l.Load(ctx))

	err := l.AddPool("", nil)
	assert.True(t, errors.IsValidation(err))
	err = l.ModifyPool("frag.org", "not a host", nil)
	assert.True(t, errors.IsValidation(err))
	err = l.ModifyServer("missing.org", "bad_name", nil)
	assert.True(t, errors.IsValidation(err))

	require.NoError(t, l.Save(ctx))
	assert.Equal(t, systemChrony, fs.Content(DefaultChronyConfPath))
	assert.Equal(t, "pool frag.org iburst\n", fs.Content(DefaultPoolFragmentPath))
}

func TestLayeredSystemMissing(t *testing.T) {
	l := NewLayered(target.NewMemory(nil), "", "")
	assert.Error(t, l.Load(context.Background()))
}
