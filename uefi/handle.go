// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
	"runtime"
)

// EFI_LOCATE_SEARCH_TYPE
const (
	AllHandles = iota
	ByRegisterNotify
	ByProtocol
)

// EFI_HANDLE size
const handleSize = 8

// HandleCapacity is the initial number of entries used by
// [BootServices.Handles].
var HandleCapacity = 1024

// HandleSet represents a fixed capacity array of handles populated by
// EFI_BOOT_SERVICES.LocateHandle().
type HandleSet struct {
	handles []Handle
	n       int
}

// NewHandleSet returns an empty handle set with the argument capacity.
func NewHandleSet(capacity int) *HandleSet {
	return &HandleSet{
		handles: make([]Handle, capacity),
	}
}

// Len returns the number of handles filled by firmware.
func (h *HandleSet) Len() int {
	return h.n
}

// Cap returns the handle set capacity.
func (h *HandleSet) Cap() int {
	return len(h.handles)
}

// Handle returns the handle at the argument index.
func (h *HandleSet) Handle(i int) (Handle, bool) {
	if i < 0 || i >= h.n {
		return 0, false
	}

	return h.handles[i], true
}

// Handles returns a copy of the filled handles.
func (h *HandleSet) Handles() []Handle {
	return append([]Handle(nil), h.handles[:h.n]...)
}

// LocateHandle calls EFI_BOOT_SERVICES.LocateHandle() once, filling the
// argument handle set. A set too small for all matching handles results in a
// [*SizeError] reporting the required size, the call is never retried.
func (s *BootServices) LocateHandle(searchType int, guid GUID, set *HandleSet) (err error) {
	var addr uint64
	var protocol uint64

	size := uint64(set.Cap() * handleSize)

	if set.Cap() > 0 {
		addr = ptrval(&set.handles[0])
	}

	if searchType == ByProtocol {
		protocol = ptrval(&guid)
	}

	status := s.fw.Call(s.base+locateHandle,
		[]uint64{
			uint64(searchType),
			protocol,
			0,
			ptrval(&size),
			addr,
		},
	)
	runtime.KeepAlive(&guid)

	if Status(status) == ErrBufferTooSmall {
		return &SizeError{
			Required: int(size),
			Capacity: set.Cap() * handleSize,
		}
	}

	if err = parseStatus(status); err != nil {
		return
	}

	if size > uint64(set.Cap()*handleSize) || size%handleSize != 0 {
		return fmt.Errorf("invalid handle buffer size (%d)", size)
	}

	set.n = int(size / handleSize)

	return
}

// Handles returns all handles matching the argument search, negotiating the
// buffer size with firmware starting from HandleCapacity entries.
func (s *BootServices) Handles(searchType int, guid GUID) (*HandleSet, error) {
	return s.NegotiateHandles(searchType, guid, HandleCapacity)
}

// NegotiateHandles returns all handles matching the argument search,
// negotiating the buffer size with firmware starting from the argument
// number of entries.
func (s *BootServices) NegotiateHandles(searchType int, guid GUID, capacity int) (*HandleSet, error) {
	return Negotiate(capacity*handleSize, 0, func(n int) (set *HandleSet, err error) {
		set = NewHandleSet((n + handleSize - 1) / handleSize)

		if err = s.LocateHandle(searchType, guid, set); err != nil {
			return nil, err
		}

		return
	})
}
