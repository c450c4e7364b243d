package rescue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/hive/hivetest"
	"github.com/joshuapare/regrescue/internal/liveedit"
	"github.com/joshuapare/regrescue/internal/regtext"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/internal/winenv"
	"github.com/joshuapare/regrescue/pkg/types"
)

const testSID = "S-1-5-21-1111111111-2222222222-3333333333-1001"

// fakeWindows stands in for reg.exe and the live registry. Each hive path maps
// to the value it holds (nil for none); Load mounts one of them.
type fakeWindows struct {
	profile config.Profile

	mu        sync.Mutex
	hives     map[string]*types.Value
	mounted   string
	calls     []string
	written   []types.Value
	loadErr   map[string]error
	importErr error
	backupErr error
	writeErr  error
}

func newFakeWindows(p config.Profile) *fakeWindows {
	return &fakeWindows{profile: p, hives: map[string]*types.Value{}, loadErr: map[string]error{}}
}

func (w *fakeWindows) record(format string, args ...any) {
	w.calls = append(w.calls, fmt.Sprintf(format, args...))
}

func (w *fakeWindows) Load(_ context.Context, mount, hivePath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("load %s %s", mount, hivePath)
	if err := w.loadErr[hivePath]; err != nil {
		return err
	}
	if w.mounted != "" {
		return errors.New("mount point busy")
	}
	w.mounted = hivePath
	return nil
}

func (w *fakeWindows) Unload(_ context.Context, mount string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("unload %s", mount)
	w.mounted = ""
	return nil
}

func (w *fakeWindows) Export(_ context.Context, key, file string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("export %s", key)
	var text string
	switch key {
	case w.profile.LiveKey():
		if w.backupErr != nil {
			return w.backupErr
		}
		text = regtext.Emit(w.profile.LiveKeyLong(), types.Value{Name: "broken", Type: types.REG_DWORD, Data: []byte{0, 0, 0, 0}})
	case w.profile.MountKey():
		v := w.hives[w.mounted]
		if v == nil {
			return errors.New("ERROR: The system was unable to find the specified registry key or value.")
		}
		text = regtext.Emit(w.profile.MountKeyLong(), *v,
			types.Value{Name: "other", Type: types.REG_DWORD, Data: []byte{1, 0, 0, 0}})
	default:
		return fmt.Errorf("unexpected export of %s", key)
	}
	data, err := regtext.EncodeUTF16LE(text)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0o644)
}

func (w *fakeWindows) Import(_ context.Context, file string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("import %s", file)
	return w.importErr
}

func (w *fakeWindows) mountedValue(root liveedit.Root, path, name string) (*types.Value, error) {
	want := w.profile.MountName + `\` + w.profile.CleanKey()
	if root != liveedit.Users || !strings.EqualFold(path, want) {
		return nil, fmt.Errorf("unexpected query %s\\%s", root, path)
	}
	if w.mounted == "" {
		return nil, errors.New("nothing mounted")
	}
	v := w.hives[w.mounted]
	if v == nil || !strings.EqualFold(v.Name, name) {
		return nil, nil
	}
	return v, nil
}

func (w *fakeWindows) HasValue(root liveedit.Root, path, name string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, err := w.mountedValue(root, path, name)
	return v != nil, err
}

func (w *fakeWindows) ReadValue(root liveedit.Root, path, name string) (types.Value, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, err := w.mountedValue(root, path, name)
	if err != nil {
		return types.Value{}, err
	}
	if v == nil {
		return types.Value{}, liveedit.ErrNotFound
	}
	return *v, nil
}

func (w *fakeWindows) WriteValue(root liveedit.Root, path string, v types.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("write %s\\%s\\%s", root, path, v.Name)
	if w.writeErr != nil {
		return w.writeErr
	}
	w.written = append(w.written, v)
	return nil
}

func (w *fakeWindows) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWindows) count(prefix string) int {
	n := 0
	for _, c := range w.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeSources struct {
	restorePoints []snapshot.Source
	shadows       []snapshot.Source
	rpErr         error
	shadowErr     error
	warnings      []string
	rpCalls       int
	shadowCalls   int
}

func (s *fakeSources) RestorePoints(_ context.Context, sid string) ([]snapshot.Source, error) {
	s.rpCalls++
	if sid != testSID {
		return nil, fmt.Errorf("unexpected SID %q", sid)
	}
	return append([]snapshot.Source(nil), s.restorePoints...), s.rpErr
}

func (s *fakeSources) Shadows(_ context.Context, user string) ([]snapshot.Source, []string, error) {
	s.shadowCalls++
	if user != "alice" {
		return nil, nil, fmt.Errorf("unexpected user %q", user)
	}
	return append([]snapshot.Source(nil), s.shadows...), s.warnings, s.shadowErr
}

type harness struct {
	t       *testing.T
	profile config.Profile
	win     *fakeWindows
	sources *fakeSources
	fixer   *Fixer
	dir     string
	value   types.Value
}

func newHarness(t *testing.T, mode config.Mode) *harness {
	t.Helper()
	p := config.Default()
	p.OutputDir = t.TempDir()
	win := newFakeWindows(p)
	sources := &fakeSources{}
	h := &harness{
		t:       t,
		profile: p,
		win:     win,
		sources: sources,
		dir:     t.TempDir(),
		value: types.Value{
			Name: p.OldValue,
			Type: types.REG_BINARY,
			Data: []byte(strings.Repeat("steam-account-", 12)),
		},
	}
	h.fixer = &Fixer{
		Profile:  p,
		Registry: win,
		Live:     win,
		Sources:  sources,
		Identity: winenv.Identity{SID: testSID, User: "alice", Admin: true},
		Options:  Options{Mode: mode},
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h
}

// hive writes a hive file that holds the value when withValue is set, and
// registers it with the fake registry.
func (h *harness) hive(name string, withValue bool) string {
	h.t.Helper()
	path := h.writeHive(hivetest.New("ROOT"), name, withValue)
	if withValue {
		v := h.value
		h.win.hives[path] = &v
	} else {
		h.win.hives[path] = nil
	}
	return path
}

// staleHive writes a dirty hive file whose primary blocks lack the value while
// the mounted view, with the logs replayed, holds it.
func (h *harness) staleHive(name string) string {
	h.t.Helper()
	path := h.writeHive(hivetest.New("ROOT").Dirty(), name, false)
	v := h.value
	h.win.hives[path] = &v
	return path
}

func (h *harness) writeHive(b *hivetest.Builder, name string, withValue bool) string {
	b.Key(`Software\Microsoft`)
	if withValue {
		b.Value(h.profile.Key, h.value)
	} else {
		b.Value(h.profile.Key, types.Value{Name: "unrelated", Type: types.REG_DWORD, Data: []byte{1, 0, 0, 0}})
	}
	return b.Write(h.t, h.dir, name)
}

func (h *harness) before(d time.Duration) time.Time { return h.profile.Cutoff.Add(-d) }

func (h *harness) readOutput(path string) string {
	h.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("read %s: %v", path, err)
	}
	text, err := regtext.Decode(data)
	if err != nil {
		h.t.Fatalf("decode %s: %v", path, err)
	}
	return text
}
