// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/go-preboot/uefi"
)

// EFI Simple Text Output Protocol offsets
const (
	reset        = 0x00
	outputString = 0x08
	clearScreen  = 0x30
)

// EFI Simple Text Input Protocol offset for ReadKeyStroke
const readKeyStroke = 0x08

// protocol layouts
const (
	textOutputSize  = 0x50
	textInputSize   = 0x18
	loadedImageSize = 96
	fileSystemSize  = 16
	fileSize        = 88
)

func (f *Firmware) textOutput() uint64 {
	return f.Table(textOutputSize, map[int]uint64{
		reset:        f.Func("Reset", f.reset),
		outputString: f.Func("OutputString", f.outputString),
		clearScreen:  f.Func("ClearScreen", f.clearScreen),
	})
}

func (f *Firmware) textInput() uint64 {
	return f.Table(textInputSize, map[int]uint64{
		readKeyStroke: f.Func("ReadKeyStroke", f.readKeyStroke),
	})
}

// Reset(This, ExtendedVerification)
func (f *Firmware) reset(args []uint64) uint64 {
	if arg(args, 0) != f.ConOut {
		return uint64(uefi.ErrInvalidParameter)
	}

	f.Resets++

	return uefi.EFI_SUCCESS
}

// OutputString(This, String)
func (f *Firmware) outputString(args []uint64) uint64 {
	if arg(args, 0) != f.ConOut || arg(args, 1) == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	f.Output = append(f.Output, loadString(arg(args, 1)))

	return uefi.EFI_SUCCESS
}

// ClearScreen(This)
func (f *Firmware) clearScreen(args []uint64) uint64 {
	if arg(args, 0) != f.ConOut {
		return uint64(uefi.ErrInvalidParameter)
	}

	f.Output = nil

	return uefi.EFI_SUCCESS
}

// ReadKeyStroke(This, Key)
func (f *Firmware) readKeyStroke(args []uint64) uint64 {
	if arg(args, 0) != f.ConIn || arg(args, 1) == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	if len(f.Keys) == 0 {
		return uint64(uefi.ErrNotReady)
	}

	// ScanCode (zero) followed by UnicodeChar
	store32(arg(args, 1), uint32(f.Keys[0])<<16)
	f.Keys = f.Keys[1:]

	return uefi.EFI_SUCCESS
}

func (f *Firmware) loadedImage(device uefi.Handle) (addr uint64) {
	addr = f.Alloc(loadedImageSize)

	f.mustPut(addr, &uefi.LoadedImage{
		Revision:      uefi.EFI_LOADED_IMAGE_PROTOCOL_REVISION,
		SystemTable:   f.SystemTable,
		DeviceHandle:  device,
		ImageBase:     ImageBase,
		ImageSize:     ImageSize,
		ImageCodeType: uefi.EfiLoaderCode,
		ImageDataType: uefi.EfiLoaderData,
	})

	return
}

func (f *Firmware) simpleFileSystem(root uint64) (addr uint64) {
	addr = f.Table(fileSystemSize, map[int]uint64{
		0x08: f.Func("OpenVolume", func(args []uint64) uint64 {
			if arg(args, 0) != addr || arg(args, 1) == 0 {
				return uint64(uefi.ErrInvalidParameter)
			}

			store64(arg(args, 1), root)

			return uefi.EFI_SUCCESS
		}),
	})

	f.mustPut(addr, uint64(uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION))

	return
}

func (f *Firmware) file(revision uint64) (addr uint64) {
	addr = f.Table(fileSize, map[int]uint64{
		0x08: f.Func("Open", func(args []uint64) uint64 {
			if arg(args, 0) != addr || arg(args, 1) == 0 || arg(args, 2) == 0 {
				return uint64(uefi.ErrInvalidParameter)
			}

			child, ok := f.files[loadString(arg(args, 2))]

			if !ok {
				return uint64(uefi.ErrNotFound)
			}

			store64(arg(args, 1), child)

			return uefi.EFI_SUCCESS
		}),
	})

	f.mustPut(addr, revision)

	return
}
