package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/liveedit"
	"github.com/joshuapare/regrescue/internal/regtext"
	"github.com/joshuapare/regrescue/internal/rescue"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/internal/winenv"
	"github.com/joshuapare/regrescue/pkg/types"
)

// stubRegistry accepts exports and imports and mounts nothing.
type stubRegistry struct {
	calls     []string
	importErr error
}

func (s *stubRegistry) Load(_ context.Context, mount, hivePath string) error {
	s.calls = append(s.calls, "load "+hivePath)
	return errors.New("cannot load")
}

func (s *stubRegistry) Unload(context.Context, string) error { return nil }

func (s *stubRegistry) Export(_ context.Context, key, file string) error {
	s.calls = append(s.calls, "export "+key)
	return errors.New("key not found")
}

func (s *stubRegistry) Import(_ context.Context, file string) error {
	s.calls = append(s.calls, "import "+file)
	return s.importErr
}

type stubLive struct{}

func (stubLive) HasValue(liveedit.Root, string, string) (bool, error) { return false, nil }
func (stubLive) ReadValue(liveedit.Root, string, string) (types.Value, error) {
	return types.Value{}, liveedit.ErrNotFound
}
func (stubLive) WriteValue(liveedit.Root, string, types.Value) error { return nil }

type stubSources struct{ sources []snapshot.Source }

func (s stubSources) RestorePoints(context.Context, string) ([]snapshot.Source, error) {
	return s.sources, nil
}

func (s stubSources) Shadows(context.Context, string) ([]snapshot.Source, []string, error) {
	return nil, []string{"shadow listing skipped"}, nil
}

// useStubs swaps the OS surface for stubs for the duration of the test.
func useStubs(t *testing.T, admin bool, sources ...snapshot.Source) *stubRegistry {
	t.Helper()
	reg := &stubRegistry{}
	origSupported, origAdmin, origEnv := platformSupported, processIsAdmin, newEnvironment
	platformSupported = func() bool { return true }
	processIsAdmin = func() bool { return admin }
	newEnvironment = func(context.Context, config.Profile) (environment, error) {
		return environment{
			registry: reg,
			live:     stubLive{},
			sources:  stubSources{sources: sources},
			identity: winenv.Identity{SID: "S-1-5-21-1-2-3-1001", User: "alice", Admin: admin},
		}, nil
	}
	t.Cleanup(func() {
		platformSupported, processIsAdmin, newEnvironment = origSupported, origAdmin, origEnv
	})
	return reg
}

func TestFixRequiresWindows(t *testing.T) {
	resetFlags()
	orig := platformSupported
	platformSupported = func() bool { return false }
	t.Cleanup(func() { platformSupported = orig })

	err := runFix(testCommand())
	require.ErrorIs(t, err, errNotWindows)
}

func TestFixRequiresAdmin(t *testing.T) {
	resetFlags()
	useStubs(t, false)
	outDirFlag = t.TempDir()

	err := runFix(testCommand())
	require.ErrorContains(t, err, "administrator rights required")

	fixSkipAdminCheck = true
	_, err = captureOutput(t, func() error { return runFix(testCommand()) })
	require.ErrorIs(t, err, rescue.ErrNotFound)
}

func TestFixRejectsBadMode(t *testing.T) {
	resetFlags()
	fixMode = "yolo"
	require.Error(t, runFix(testCommand()))
}

func writeRegFile(t *testing.T, dir string, p config.Profile) string {
	t.Helper()
	v := types.Value{Name: p.OldValue, Type: types.REG_BINARY, Data: []byte("account-data")}
	data, err := regtext.EncodeUTF16LE(regtext.Emit(p.LiveKeyLong(), v))
	require.NoError(t, err)
	path := filepath.Join(dir, "backup.reg")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFixRegFileLive(t *testing.T) {
	resetFlags()
	reg := useStubs(t, true)
	dir := t.TempDir()
	outDirFlag = dir
	fixMode = "live"
	fixRegFile = writeRegFile(t, dir, config.Default())

	out, err := captureOutput(t, func() error { return runFix(testCommand()) })
	require.NoError(t, err)
	fixed := filepath.Join(dir, config.Default().Files.RegFileOutput)
	assertContains(t, out, []string{"Running in live mode", "Recovered from " + fixRegFile, "Fixed REG file: " + fixed, "Merged into the live registry"})
	assert.Equal(t, []string{"export " + config.Default().LiveKey(), "import " + fixed}, reg.calls)
}

func TestFixLiveImportFailureReported(t *testing.T) {
	resetFlags()
	reg := useStubs(t, true)
	reg.importErr = errors.New("ERROR: Error accessing the registry.")
	dir := t.TempDir()
	outDirFlag = dir
	fixMode = "live"
	fixRegFile = writeRegFile(t, dir, config.Default())

	out, err := captureOutput(t, func() error { return runFix(testCommand()) })
	require.ErrorIs(t, err, rescue.ErrMerge)
	assert.Contains(t, out, "Not merged: applying the fix to the live registry failed")
	assert.NotContains(t, out, "simulation mode")
}

func TestFixSimulationNotMerged(t *testing.T) {
	resetFlags()
	useStubs(t, true)
	dir := t.TempDir()
	outDirFlag = dir
	fixRegFile = writeRegFile(t, dir, config.Default())

	out, err := captureOutput(t, func() error { return runFix(testCommand()) })
	require.NoError(t, err)
	assert.Contains(t, out, "Not merged (simulation mode)")
}

func TestFixJSON(t *testing.T) {
	resetFlags()
	useStubs(t, true)
	dir := t.TempDir()
	outDirFlag = dir
	jsonOut = true
	fixRegFile = writeRegFile(t, dir, config.Default())

	out, err := captureOutput(t, func() error { return runFix(testCommand()) })
	require.NoError(t, err)
	// The mode banner precedes the JSON document.
	doc := out[strings.Index(out, "{"):]
	assertJSON(t, doc)
	assertContains(t, doc, []string{`"mode": "simulation"`, `"merged": false`})
}

func TestFixNothingFound(t *testing.T) {
	resetFlags()
	hivePath := filepath.Join(t.TempDir(), "missing-hive")
	reg := useStubs(t, true, snapshot.Source{
		Kind:     snapshot.RestorePoint,
		Label:    "RP1",
		Created:  config.Default().Cutoff.Add(-time.Hour),
		HivePath: hivePath,
	})
	outDirFlag = t.TempDir()
	fixNoProbe = true

	_, err := captureOutput(t, func() error { return runFix(testCommand()) })
	require.ErrorIs(t, err, rescue.ErrNotFound)
	assert.Contains(t, reg.calls, "load "+hivePath)
}
