// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

// Package x64 provides the board support of a pre-boot UEFI application on a
// single x86_64 core, it is initialized automatically on import.
//
// At entry the firmware image handle and EFI System Table pointer are
// recorded, the UEFI services in [UEFI] are initialized against them and the
// Go runtime heap is reserved within the UEFI memory map.
//
// This package is only meant to be used with `GOOS=tamago` as
// supported by the TamaGo framework for bare metal Go, see
// https://github.com/usbarmory/tamago.
package x64

import (
	"log"
	"runtime/goos"
	_ "unsafe"

	"github.com/usbarmory/tamago/amd64"
	"github.com/usbarmory/tamago/soc/intel/rtc"
	"github.com/usbarmory/tamago/soc/intel/uart"

	"github.com/usbarmory/go-preboot/uefi"
)

// COM1 is the serial port mirroring the UEFI console.
const COM1 = 0x3f8

// image entry arguments and early console instances, set in x64.s
var (
	imageHandle uint64
	systemTable uint64
	conIn       uint64
	conOut      uint64
)

var (
	// AMD64 is the boot core, TimerMultiplier must be set before Init().
	AMD64 = &amd64.CPU{TimerMultiplier: 1}

	// RTC seeds the runtime clock.
	RTC = &rtc.RTC{}

	// UART0 mirrors all console output.
	UART0 = &uart.UART{
		Index: 1,
		Base:  COM1,
		DTR:   true,
		RTS:   true,
	}

	// UEFI holds the services received at entry, Boot is nil if their
	// initialization failed.
	UEFI = &uefi.Services{}
)

//go:linkname nanotime runtime/goos.Nanotime
func nanotime() int64 {
	return AMD64.GetTime()
}

// Init initializes the core and serial port, it is called by the runtime
// before any package initialization.
//
//go:linkname Init runtime/goos.Hwinit1
func Init() {
	AMD64.Init()

	// firmware owns idle management until boot services are exited
	goos.Idle = nil

	UART0.Init()
}

func initServices() (err error) {
	if err = UEFI.Init(&Firmware{}, imageHandle, systemTable); err != nil {
		return
	}

	Console = UEFI.Console

	return allocateHeap()
}

func init() {
	if t, err := RTC.Now(); err == nil {
		AMD64.SetTime(t.UnixNano())
	}

	Console.ClearScreen()

	if err := initServices(); err != nil {
		log.Printf("WARNING: EFI services initialization, %v", err)
	}
}
