// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uefi implements a driver for the Unified Extensible Firmware
// Interface (UEFI) following the specifications at:
//
//	https://uefi.org/specs/UEFI/2.10/
//
// The package only models the firmware ABI, all foreign calls and firmware
// memory accesses go through a [Firmware] implementation. The `uefi/x64`
// package provides one for `GOOS=tamago` as supported by the TamaGo framework
// for bare metal Go, see https://github.com/usbarmory/tamago.
package uefi

import (
	"errors"
	"fmt"
)

// EFI Table Header Signature
const signature = 0x5453595320494249 // TSYS IBI

// Handle represents an opaque EFI_HANDLE, it is only ever compared by
// identity and never dereferenced.
type Handle uint64

// TableHeader represents the data structure that precedes all of the standard
// EFI table types.
type TableHeader struct {
	Signature  uint64
	Revision   uint32
	HeaderSize uint32
	CRC32      uint32
	Reserved   uint32
}

// SystemTable represents the EFI System Table, containing pointers to the
// runtime and boot services tables.
type SystemTable struct {
	Header               TableHeader
	FirmwareVendor       uint64
	FirmwareRevision     uint32
	_                    uint32
	ConsoleInHandle      uint64
	ConIn                uint64
	ConsoleOutHandle     uint64
	ConOut               uint64
	StandardErrorHandle  uint64
	StdErr               uint64
	RuntimeServices      uint64
	BootServices         uint64
	NumberOfTableEntries uint64
	ConfigurationTable   uint64
}

// BootServices represents an EFI Boot Services instance, the table is
// borrowed from firmware and never released.
type BootServices struct {
	fw          Firmware
	base        uint64
	imageHandle Handle
}

// Address returns the EFI Boot Services table pointer.
func (s *BootServices) Address() uint64 {
	return s.base
}

// ImageHandle returns the handle of the running image, which is also used as
// agent handle for [BootServices.OpenProtocol].
func (s *BootServices) ImageHandle() Handle {
	return s.imageHandle
}

// Services represents the UEFI services instance.
type Services struct {
	// EFI System Table instance
	SystemTable *SystemTable

	// UEFI services
	Console *Console
	Boot    *BootServices

	fw          Firmware
	imageHandle Handle
	systemTable uint64
}

// Init initializes an UEFI services instance using the argument pointers, as
// received at image entry.
func (s *Services) Init(fw Firmware, imageHandle uint64, systemTable uint64) (err error) {
	if fw == nil {
		return errors.New("invalid firmware interface")
	}

	s.fw = fw
	s.imageHandle = Handle(imageHandle)
	s.systemTable = systemTable

	s.SystemTable = &SystemTable{}

	if err = decode(fw, s.SystemTable, systemTable); err != nil {
		return fmt.Errorf("could not read EFI System Table, %w", err)
	}

	if s.SystemTable.Header.Signature != signature {
		return errors.New("EFI System Table pointer is invalid")
	}

	s.Console = NewConsole(fw, s.SystemTable.ConIn, s.SystemTable.ConOut)

	s.Boot = &BootServices{
		fw:          fw,
		base:        s.SystemTable.BootServices,
		imageHandle: s.imageHandle,
	}

	return
}

// ImageHandle returns the UEFI image handle.
func (s *Services) ImageHandle() Handle {
	return s.imageHandle
}

// Address returns the EFI System Table pointer.
func (s *Services) Address() uint64 {
	return s.systemTable
}

// Vendor returns the firmware vendor string.
func (s *Services) Vendor() string {
	const maxVendorSize = 64

	buf := make([]byte, maxVendorSize)

	if s.SystemTable.FirmwareVendor == 0 {
		return ""
	}

	if err := s.fw.Read(s.SystemTable.FirmwareVendor, buf); err != nil {
		return ""
	}

	return fromUTF16(buf)
}
