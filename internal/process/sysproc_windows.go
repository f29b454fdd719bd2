//go:build windows

package process

import "os/exec"

func setProcAttr(*exec.Cmd) {}
