package sysexec

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "reg load HKU\\TempHive C:\\x\\NTUSER.DAT",
		CommandLine("reg", "load", `HKU\TempHive`, `C:\x\NTUSER.DAT`))
	assert.Equal(t, `reg export "HKCU\Software\My Game" "" /y`,
		CommandLine("reg", "export", `HKCU\Software\My Game`, "", "/y"))
}

func TestExitErrorMessage(t *testing.T) {
	base := errors.New("exit status 1")
	err := &ExitError{Command: "reg unload HKU\\TempHive", Code: 1, Output: []byte("ERROR: Access is denied.\r\n"), Err: base}
	assert.Equal(t, `reg unload HKU\TempHive: exit status 1: ERROR: Access is denied.`, err.Error())
	assert.ErrorIs(t, err, base)

	bare := &ExitError{Command: "vssadmin", Err: base}
	assert.Equal(t, "vssadmin: exit status 1", bare.Error())
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()
	var r ExecRunner

	out, err := r.Run(ctx, "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Contains(t, string(out), "out")
	assert.Contains(t, string(out), "err")

	out, err = r.Run(ctx, "sh", "-c", "echo denied; exit 3")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "denied\n", string(exitErr.Output))
	assert.Equal(t, out, exitErr.Output)

	_, err = r.Run(ctx, "definitely-not-a-real-binary-xyz")
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, -1, exitErr.Code)
}

func TestExecRunnerEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := ExecRunner{Env: []string{"REGRESCUE_PROBE=yes"}}
	out, err := r.Run(context.Background(), "sh", "-c", "echo $REGRESCUE_PROBE")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", string(out))
}

func TestFake(t *testing.T) {
	f := &Fake{Handler: func(c Call) ([]byte, error) {
		if c.Args[0] == "import" {
			return []byte("nope"), errors.New("boom")
		}
		return []byte("ok"), nil
	}}
	ctx := context.Background()

	out, err := f.Run(ctx, "reg", "export", "HKCU\\A", "a.reg", "/y")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	_, err = f.Run(ctx, "reg", "import", "a.reg")
	require.Error(t, err)

	assert.Equal(t, []string{`reg export HKCU\A a.reg /y`, "reg import a.reg"}, f.Lines())
	assert.Equal(t, 1, f.Count("REG", "Import"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Run(cancelled, "reg", "load")
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.Calls(), 2)
}
