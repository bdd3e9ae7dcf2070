// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/usbarmory/go-preboot/probe"
	"github.com/usbarmory/go-preboot/uefi/x64"
)

// set at build time with -ldflags -X
var (
	Revision string
	Build    string
)

// console is set by the `console` build tag to start the diagnostics shell
// before halting.
var console func()

func init() {
	log.SetFlags(0)
}

func banner() string {
	return fmt.Sprintf("go-preboot • %s/%s (%s) • %s %s",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), Revision, Build)
}

func halt() {
	// the firmware resets the platform on watchdog expiry
	if err := x64.UEFI.Boot.SetWatchdogTimer(0); err != nil {
		log.Printf("could not disable watchdog, %v", err)
	}

	log.Printf("halting")

	for {
	}
}

func main() {
	log.Print(banner())

	if x64.UEFI.Boot == nil {
		log.Printf("EFI services are not available")
		for {
		}
	}

	r, err := probe.Run(x64.UEFI, probe.DefaultConfig())

	if err != nil {
		log.Printf("boot flow failed, %v", err)
	}

	if err = r.Print(x64.UEFI.Console); err != nil {
		log.Printf("could not print report, %v", err)
	}

	if console != nil {
		console()
	}

	halt()
}
