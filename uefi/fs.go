// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
	"runtime"
)

const (
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION = 0x00010000
	EFI_FILE_PROTOCOL_REVISION               = 0x00010000
	EFI_FILE_PROTOCOL_REVISION2              = 0x00020000
)

// EFI Simple File System Protocol offset for OpenVolume
const openVolume = 0x08

// EFI File Protocol offset for Open
const open = 0x08

// EFI File Protocol open modes
const (
	EFI_FILE_MODE_READ   = 0x0000000000000001
	EFI_FILE_MODE_WRITE  = 0x0000000000000002
	EFI_FILE_MODE_CREATE = 0x8000000000000000
)

// EFI File Protocol attributes
const (
	EFI_FILE_READ_ONLY = 0x0000000000000001
	EFI_FILE_HIDDEN    = 0x0000000000000002
	EFI_FILE_SYSTEM    = 0x0000000000000004
	EFI_FILE_RESERVED  = 0x0000000000000008
	EFI_FILE_DIRECTORY = 0x0000000000000010
	EFI_FILE_ARCHIVE   = 0x0000000000000020
)

// simpleFileSystem represents the EFI Simple File System Protocol layout.
type simpleFileSystem struct {
	Revision   uint64
	OpenVolume uint64
}

// fileProtocol represents the EFI File Protocol layout, slots beyond Open
// are never invoked.
type fileProtocol struct {
	Revision uint64
	Open     uint64
	_        [9]uint64
}

// SimpleFileSystem represents an EFI Simple File System Protocol instance.
type SimpleFileSystem struct {
	// Revision is the protocol revision.
	Revision uint64

	fw   Firmware
	base uint64
}

// SimpleFileSystem returns the EFI Simple File System Protocol instance for
// the argument device handle.
func (s *BootServices) SimpleFileSystem(device Handle) (root *SimpleFileSystem, err error) {
	var addr uint64
	var sfs simpleFileSystem

	if addr, err = s.GetProtocol(device, EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID); err != nil {
		return
	}

	if err = decode(s.fw, &sfs, addr); err != nil {
		return
	}

	if sfs.Revision != EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION {
		return nil, fmt.Errorf("invalid simple file system protocol revision (%#x)", sfs.Revision)
	}

	root = &SimpleFileSystem{
		Revision: sfs.Revision,
		fw:       s.fw,
		base:     addr,
	}

	return
}

// OpenVolume calls EFI_SIMPLE_FILE SYSTEM_PROTOCOL.OpenVolume() and returns
// the volume root directory.
func (root *SimpleFileSystem) OpenVolume() (f *File, err error) {
	var addr uint64

	status := root.fw.Call(root.base+openVolume,
		[]uint64{
			root.base,
			ptrval(&addr),
		},
	)

	if addr, err = protocolInterface(status, addr); err != nil {
		return
	}

	return newFile(root.fw, addr, "\\")
}

// File represents an EFI File Protocol instance, files are never closed and
// remain valid for the lifetime of the running image.
type File struct {
	// Revision is the protocol revision.
	Revision uint64

	fw   Firmware
	base uint64
	name string
}

func newFile(fw Firmware, addr uint64, name string) (f *File, err error) {
	var fp fileProtocol

	if err = decode(fw, &fp, addr); err != nil {
		return
	}

	if fp.Revision != EFI_FILE_PROTOCOL_REVISION && fp.Revision != EFI_FILE_PROTOCOL_REVISION2 {
		return nil, fmt.Errorf("invalid file protocol revision (%#x)", fp.Revision)
	}

	f = &File{
		Revision: fp.Revision,
		fw:       fw,
		base:     addr,
		name:     name,
	}

	return
}

// Name returns the file name, relative to its parent.
func (f *File) Name() string {
	return f.name
}

// Address returns the EFI File Protocol instance pointer.
func (f *File) Address() uint64 {
	return f.base
}

// Open calls EFI_FILE_PROTOCOL.Open() and returns a new file relative to the
// receiver location.
func (f *File) Open(name string, mode uint64, attributes uint64) (child *File, err error) {
	var addr uint64

	fileName := toUTF16(name)

	status := f.fw.Call(f.base+open,
		[]uint64{
			f.base,
			ptrval(&addr),
			ptrval(&fileName[0]),
			mode,
			attributes,
		},
	)
	runtime.KeepAlive(fileName)

	if addr, err = protocolInterface(status, addr); err != nil {
		return
	}

	return newFile(f.fw, addr, name)
}

// Root returns the root directory of the volume the running image was loaded
// from.
func (s *Services) Root() (root *File, err error) {
	var image *LoadedImage
	var sfs *SimpleFileSystem

	if image, err = s.Boot.LoadedImage(s.imageHandle); err != nil {
		return
	}

	if sfs, err = s.Boot.SimpleFileSystem(image.DeviceHandle); err != nil {
		return
	}

	return sfs.OpenVolume()
}
