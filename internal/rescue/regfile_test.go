package rescue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/regtext"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/pkg/types"
)

func (h *harness) regFile(name, keyPath string, values ...types.Value) string {
	h.t.Helper()
	data, err := regtext.EncodeUTF16LE(regtext.Emit(keyPath, values...))
	require.NoError(h.t, err)
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunRegFileShortCircuits(t *testing.T) {
	h := newHarness(t, config.ModeLive)
	h.fixer.Options.RegFile = h.regFile("backup.reg", h.profile.LiveKeyLong(), h.value)
	h.sources.restorePoints = []snapshot.Source{rp("RP1", h.hive("rp", true), h.before(1))}

	res, err := h.fixer.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Source)
	assert.Equal(t, h.fixer.Options.RegFile, res.RegFile)
	assert.Equal(t, h.profile.Path(h.profile.Files.RegFileOutput), res.OutputFile)
	assert.True(t, res.Merged)
	assert.Zero(t, h.sources.rpCalls, "no snapshot search after a usable reg file")
	assert.Equal(t, []string{"export " + h.profile.LiveKey(), "import " + res.OutputFile}, h.win.Calls())

	text := h.readOutput(res.OutputFile)
	got, err := regtext.FindValue(text, h.profile.LiveKeyLong(), h.profile.NewValue)
	require.NoError(t, err)
	assert.Equal(t, h.value.Data, got.Data)
	_, err = regtext.FindValue(text, h.profile.LiveKeyLong(), h.profile.OldValue)
	require.ErrorIs(t, err, regtext.ErrValueNotFound, "the value is renamed, not duplicated")
	require.NotNil(t, res.Value)
	assert.Equal(t, h.value.Data, res.Value.Data)
}

func TestRunRegFileSimulation(t *testing.T) {
	h := newHarness(t, config.ModeSimulation)
	h.fixer.Options.RegFile = h.regFile("backup.reg", `HKCU\Software\KLab\BleachBraveSouls`, h.value)

	res, err := h.fixer.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.Zero(t, h.win.count("import"))
	assert.FileExists(t, res.OutputFile)
}

func TestRunRegFileFallsBack(t *testing.T) {
	cases := map[string]func(h *harness) string{
		"missing": func(h *harness) string { return filepath.Join(h.dir, "absent.reg") },
		"other key": func(h *harness) string {
			return h.regFile("other.reg", `HKEY_CURRENT_USER\Software\KLab\Other`, h.value)
		},
		"empty": func(h *harness) string {
			path := filepath.Join(h.dir, "empty.reg")
			require.NoError(h.t, os.WriteFile(path, nil, 0o644))
			return path
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, config.ModeSimulation)
			h.fixer.Options.RegFile = mk(h)
			h.sources.restorePoints = []snapshot.Source{rp("RP1", h.hive("rp", true), h.before(1))}

			res, err := h.fixer.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "RP1", res.Source.Label)
			assert.Empty(t, res.RegFile)
			assert.NoFileExists(t, h.profile.Path(h.profile.Files.RegFileOutput))
		})
	}
}

func TestProcessRegFileWithoutOldValue(t *testing.T) {
	h := newHarness(t, config.ModeSimulation)
	path := h.regFile("backup.reg", h.profile.LiveKeyLong(),
		types.Value{Name: "unrelated", Type: types.REG_DWORD, Data: []byte{1, 0, 0, 0}})

	res, ok, err := h.fixer.ProcessRegFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok, "the key is present, so the file is still used")
	assert.Nil(t, res.Value)
	assert.Equal(t, h.readOutput(path), h.readOutput(res.OutputFile))
}

func TestProcessRegFileDirect(t *testing.T) {
	h := newHarness(t, config.ModeLive)
	h.fixer.Options.Direct = true
	path := h.regFile("backup.reg", h.profile.LiveKeyLong(), h.value)

	res, ok, err := h.fixer.ProcessRegFile(context.Background(), path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Merged)
	assert.Zero(t, h.win.count("import"))
	require.Len(t, h.win.written, 1)
	assert.Equal(t, h.profile.NewValue, h.win.written[0].Name)
}
