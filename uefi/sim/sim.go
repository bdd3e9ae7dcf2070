// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim implements a simulated UEFI firmware, serving the EFI System
// Table, Boot Services and a minimal set of protocols through the same ABI
// used by real firmware.
//
// Firmware tables and protocol instances live in a simulated address space,
// which is only accessible through [Firmware.Read]. Service arguments are
// handled as real firmware does: out-parameters and input buffers are caller
// memory addresses, written and read directly.
//
// The simulator is not safe for concurrent use.
package sim

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/usbarmory/go-preboot/uefi"
)

// Simulated address space layout
const (
	memoryBase   = 0x10000000
	functionBase = 0xffff000000000000
	handleBase   = 0x20000000
	alignment    = 16
)

// Service represents a simulated firmware function, it receives the call
// arguments and returns an EFI_STATUS.
type Service func(args []uint64) (status uint64)

type region struct {
	base uint64
	data []byte
}

type function struct {
	name string
	fn   Service
}

// Firmware represents a simulated UEFI firmware instance, it implements
// [uefi.Firmware].
type Firmware struct {
	Machine

	regions   []*region
	functions map[uint64]*function
	failures  map[string]uint64

	nextAddress  uint64
	nextFunction uint64
	nextHandle   uint64

	// Calls counts service invocations by name.
	Calls map[string]int
}

func newFirmware() *Firmware {
	return &Firmware{
		functions:    make(map[uint64]*function),
		failures:     make(map[string]uint64),
		nextAddress:  memoryBase,
		nextFunction: functionBase,
		nextHandle:   handleBase,
		Calls:        make(map[string]int),
	}
}

// Alloc reserves a zeroed region of simulated memory.
func (f *Firmware) Alloc(size int) (addr uint64) {
	addr = f.nextAddress

	f.regions = append(f.regions, &region{
		base: addr,
		data: make([]byte, size),
	})

	f.nextAddress += uint64(size+alignment-1) &^ (alignment - 1)
	f.nextAddress += alignment

	return
}

func (f *Firmware) region(addr uint64, size int) ([]byte, error) {
	for _, r := range f.regions {
		if addr < r.base || addr >= r.base+uint64(len(r.data)) {
			continue
		}

		off := addr - r.base

		if off+uint64(size) > uint64(len(r.data)) {
			return nil, fmt.Errorf("access at %#x (%d bytes) exceeds region", addr, size)
		}

		return r.data[off : off+uint64(size)], nil
	}

	return nil, fmt.Errorf("invalid address %#x", addr)
}

// Read implements [uefi.Firmware], copying simulated memory.
func (f *Firmware) Read(addr uint64, buf []byte) (err error) {
	var r []byte

	if r, err = f.region(addr, len(buf)); err != nil {
		return
	}

	copy(buf, r)

	return
}

// Write copies data to simulated memory.
func (f *Firmware) Write(addr uint64, buf []byte) (err error) {
	var r []byte

	if r, err = f.region(addr, len(buf)); err != nil {
		return
	}

	copy(r, buf)

	return
}

// Put encodes a fixed size structure, in little-endian format, to simulated
// memory.
func (f *Firmware) Put(addr uint64, data any) error {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return err
	}

	return f.Write(addr, buf.Bytes())
}

// Func registers a named service and returns its function pointer.
func (f *Firmware) Func(name string, fn Service) (ptr uint64) {
	ptr = f.nextFunction
	f.nextFunction += 8

	f.functions[ptr] = &function{
		name: name,
		fn:   fn,
	}

	return
}

// Table allocates a table of the argument size, with function pointers set
// at the argument slot offsets, and returns its address.
func (f *Firmware) Table(size int, slots map[int]uint64) (addr uint64) {
	addr = f.Alloc(size)

	for off, ptr := range slots {
		if err := f.Put(addr+uint64(off), ptr); err != nil {
			panic(err)
		}
	}

	return
}

// Handle allocates a new handle.
func (f *Firmware) Handle() uefi.Handle {
	f.nextHandle += 0x10
	return uefi.Handle(f.nextHandle)
}

// Fail forces the named service to return the argument status, a zero
// status restores normal operation.
func (f *Firmware) Fail(name string, status uefi.Status) {
	if status == 0 {
		delete(f.failures, name)
		return
	}

	f.failures[name] = uint64(status)
}

// Call implements [uefi.Firmware], invoking the simulated function whose
// pointer is stored at the argument slot address.
func (f *Firmware) Call(slot uint64, args []uint64) (status uint64) {
	var ptr [8]byte

	if err := f.Read(slot, ptr[:]); err != nil {
		panic(fmt.Sprintf("call through invalid slot %#x", slot))
	}

	fn, ok := f.functions[binary.LittleEndian.Uint64(ptr[:])]

	if !ok {
		panic(fmt.Sprintf("call through empty slot %#x", slot))
	}

	f.Calls[fn.name]++

	if status, ok = f.failures[fn.name]; ok {
		return
	}

	return fn.fn(args)
}

func arg(args []uint64, i int) uint64 {
	if i < len(args) {
		return args[i]
	}

	return 0
}
