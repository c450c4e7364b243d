//go:build !windows

package sysexec

import "os/exec"

func hideWindow(*exec.Cmd) {}
