// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmd implements the diagnostic commands of the pre-boot shell.
package cmd

import (
	"fmt"
	"io"
	"regexp"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/hako/durafmt"

	"github.com/usbarmory/go-preboot/shell"
)

var started = time.Now()

func init() {
	shell.Add(shell.Cmd{
		Name: "build",
		Help: "build information",
		Fn:   buildInfoCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	shell.Add(shell.Cmd{
		Name: "stack",
		Help: "goroutine stack trace (current)",
		Fn:   stackCmd,
	})

	shell.Add(shell.Cmd{
		Name: "date",
		Help: "show runtime date and time",
		Fn:   dateCmd,
	})

	shell.Add(shell.Cmd{
		Name: "uptime",
		Help: "show how long the system has been running",
		Fn:   uptimeCmd,
	})
}

func buildInfoCmd(_ *shell.Interface, _ []string) (string, error) {
	if bi, ok := debug.ReadBuildInfo(); ok {
		return bi.String(), nil
	}

	return "", nil
}

func exitCmd(_ *shell.Interface, _ []string) (string, error) {
	return fmt.Sprintf("Goodbye from %s/%s", runtime.GOOS, runtime.GOARCH), io.EOF
}

func stackCmd(_ *shell.Interface, _ []string) (string, error) {
	return string(debug.Stack()), nil
}

func dateCmd(_ *shell.Interface, _ []string) (string, error) {
	return time.Now().Format(time.RFC3339), nil
}

func uptimeCmd(_ *shell.Interface, _ []string) (string, error) {
	return durafmt.Parse(time.Since(started)).LimitFirstN(2).String(), nil
}
