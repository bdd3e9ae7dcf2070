// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"runtime"
)

// EFI Boot Services offsets
const (
	raiseTPL       = 0x018 // unused
	restoreTPL     = 0x020 // unused
	handleProtocol = 0x098
	locateHandle   = 0x0b0
	openProtocol   = 0x118
	locateProtocol = 0x140
)

// EFI_OPEN_PROTOCOL attributes
const (
	EFI_OPEN_PROTOCOL_BY_HANDLE_PROTOCOL  = 0x00000001
	EFI_OPEN_PROTOCOL_GET_PROTOCOL        = 0x00000002
	EFI_OPEN_PROTOCOL_TEST_PROTOCOL       = 0x00000004
	EFI_OPEN_PROTOCOL_BY_CHILD_CONTROLLER = 0x00000008
	EFI_OPEN_PROTOCOL_BY_DRIVER           = 0x00000010
	EFI_OPEN_PROTOCOL_EXCLUSIVE           = 0x00000020
)

// ErrNilInterface is returned when firmware reports success without
// returning a protocol interface.
var ErrNilInterface = errors.New("firmware returned a nil protocol interface")

func protocolInterface(status uint64, addr uint64) (uint64, error) {
	if err := parseStatus(status); err != nil {
		return 0, err
	}

	if addr == 0 {
		return 0, ErrNilInterface
	}

	return addr, nil
}

// HandleProtocol calls EFI_BOOT_SERVICES.HandleProtocol().
//
// The interface is returned without registering any consumer, which makes
// it unsuitable for interfaces requiring ownership tracking,
// [BootServices.OpenProtocol] should be preferred.
func (s *BootServices) HandleProtocol(handle Handle, guid GUID) (addr uint64, err error) {
	status := s.fw.Call(s.base+handleProtocol,
		[]uint64{
			uint64(handle),
			ptrval(&guid),
			ptrval(&addr),
		},
	)
	runtime.KeepAlive(&guid)

	return protocolInterface(status, addr)
}

// OpenProtocol calls EFI_BOOT_SERVICES.OpenProtocol(), the agent handle is
// registered as consumer of the returned interface.
func (s *BootServices) OpenProtocol(handle Handle, guid GUID, agent Handle, controller Handle, attributes uint32) (addr uint64, err error) {
	status := s.fw.Call(s.base+openProtocol,
		[]uint64{
			uint64(handle),
			ptrval(&guid),
			ptrval(&addr),
			uint64(agent),
			uint64(controller),
			uint64(attributes),
		},
	)
	runtime.KeepAlive(&guid)

	return protocolInterface(status, addr)
}

// GetProtocol opens a protocol interface on the argument handle, with the
// running image as agent.
func (s *BootServices) GetProtocol(handle Handle, guid GUID) (addr uint64, err error) {
	return s.OpenProtocol(handle, guid, s.imageHandle, 0, EFI_OPEN_PROTOCOL_BY_HANDLE_PROTOCOL)
}

// LocateProtocol calls EFI_BOOT_SERVICES.LocateProtocol().
func (s *BootServices) LocateProtocol(guid GUID) (addr uint64, err error) {
	status := s.fw.Call(s.base+locateProtocol,
		[]uint64{
			ptrval(&guid),
			0,
			ptrval(&addr),
		},
	)
	runtime.KeepAlive(&guid)

	return protocolInterface(status, addr)
}
