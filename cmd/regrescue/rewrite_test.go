package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/regtext"
)

func exportedReg(t *testing.T, dir, root string) string {
	t.Helper()
	p := config.Default()
	text := strings.Join([]string{
		regtext.RegFileHeader,
		"",
		"[" + root + "]",
		`"` + p.OldValue + `"=hex:01,02,03`,
		"",
		"[" + root + `\Sub]`,
		`"x"=dword:00000001`,
		"",
	}, "\r\n")
	data, err := regtext.EncodeUTF16LE(text)
	require.NoError(t, err)
	path := filepath.Join(dir, "export.reg")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRewriteToStdout(t *testing.T) {
	resetFlags()
	p := config.Default()
	in := exportedReg(t, t.TempDir(), p.MountKeyLong())

	out, err := captureOutput(t, func() error { return runRewrite([]string{in}) })
	require.NoError(t, err)
	assertContains(t, out, []string{
		"[" + p.LiveKeyLong() + "]",
		"[" + p.LiveKeyLong() + `\Sub]`,
		`"` + p.OldValue + `"=hex:01,02,03`,
		`"` + p.NewValue + `"=hex:01,02,03`,
	})
	assert.NotContains(t, out, p.MountName)
}

func TestRewriteToFile(t *testing.T) {
	resetFlags()
	jsonOut = true
	p := config.Default()
	dir := t.TempDir()
	in := exportedReg(t, dir, p.MountKeyLong())
	dst := filepath.Join(dir, "fixed.reg")

	out, err := captureOutput(t, func() error { return runRewrite([]string{in, dst}) })
	require.NoError(t, err)

	var res rewriteResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Sections)
	assert.Equal(t, 1, res.Duplicated)
	assert.Equal(t, dst, res.Output)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFE}, data[:2])
	text, err := regtext.Decode(data)
	require.NoError(t, err)
	v, err := regtext.FindValue(text, p.LiveKeyLong(), p.NewValue)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v.Data)
}

func TestRewriteJSONToStdoutCarriesText(t *testing.T) {
	resetFlags()
	jsonOut = true
	p := config.Default()
	in := exportedReg(t, t.TempDir(), p.MountKeyLong())

	out, err := captureOutput(t, func() error { return runRewrite([]string{in}) })
	require.NoError(t, err)

	var res rewriteResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Output)
	assert.Equal(t, 1, res.Duplicated)
	v, err := regtext.FindValue(res.Text, p.LiveKeyLong(), p.NewValue)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v.Data)
}

func TestRewriteFrom(t *testing.T) {
	resetFlags()
	p := config.Default()
	root := `HKEY_USERS\Elsewhere\` + p.Key
	in := exportedReg(t, t.TempDir(), root)

	out, err := captureOutput(t, func() error { return runRewrite([]string{in}) })
	require.NoError(t, err)
	assert.Contains(t, out, "["+root+"]")

	resetFlags()
	rewriteFrom = root
	out, err = captureOutput(t, func() error { return runRewrite([]string{in}) })
	require.NoError(t, err)
	assert.Contains(t, out, "["+p.LiveKeyLong()+"]")
	assert.NotContains(t, out, "Elsewhere")
}

func TestRewriteMissingInput(t *testing.T) {
	resetFlags()
	err := runRewrite([]string{filepath.Join(t.TempDir(), "nope.reg")})
	require.ErrorContains(t, err, "failed to read input")
}
