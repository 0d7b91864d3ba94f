//go:build !unix

package convert

import "os/exec"

func setProcessGroup(*exec.Cmd) {}
