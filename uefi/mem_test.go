// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi_test

import (
	"errors"
	"testing"

	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/usbarmory/go-preboot/uefi"
	"github.com/usbarmory/go-preboot/uefi/sim"
)

func setup(t *testing.T, files ...string) (*sim.Firmware, *uefi.Services) {
	t.Helper()

	f := sim.New(files...)
	s, err := f.Services()

	if err != nil {
		t.Fatal(err)
	}

	return f, s
}

func TestMemoryMapStride(t *testing.T) {
	f, s := setup(t)

	f.DescriptorSize = 40
	f.MemoryMap = f.MemoryMap[:2]

	m, err := s.Boot.GetMemoryMap(make([]byte, 4096))

	if err != nil {
		t.Fatal(err)
	}

	if m.Size() != 80 || m.DescriptorSize() != 40 || m.Len() != 2 {
		t.Fatalf("unexpected map geometry %d/%d/%d", m.Size(), m.DescriptorSize(), m.Len())
	}

	d0, ok0 := m.Descriptor(0)
	d1, ok1 := m.Descriptor(1)

	if !ok0 || !ok1 {
		t.Fatal("in range descriptor not returned")
	}

	if *d0 == *d1 {
		t.Fatal("distinct indices returned the same record")
	}

	if d1.PhysicalStart != f.MemoryMap[1].PhysicalStart {
		t.Fatalf("unexpected descriptor %+v", d1)
	}

	if _, ok := m.Descriptor(2); ok {
		t.Fatal("out of range descriptor returned")
	}

	if _, ok := m.Descriptor(-1); ok {
		t.Fatal("negative index returned")
	}
}

func TestMemoryMapWideStride(t *testing.T) {
	f, s := setup(t)

	f.DescriptorSize = 64

	m, err := s.Boot.GetMemoryMap(make([]byte, 4096))

	if err != nil {
		t.Fatal(err)
	}

	descriptors := m.Descriptors()

	if len(descriptors) != len(f.MemoryMap) {
		t.Fatalf("unexpected descriptor count %d", len(descriptors))
	}

	for i, d := range descriptors {
		if *d != f.MemoryMap[i] {
			t.Errorf("descriptor %d mismatch (%+v != %+v)", i, d, f.MemoryMap[i])
		}
	}
}

func TestMemoryMapPinnedStride(t *testing.T) {
	f, s := setup(t)

	m, err := s.Boot.GetMemoryMap(make([]byte, 4096))

	if err != nil {
		t.Fatal(err)
	}

	f.DescriptorSize = 56

	n, err := s.Boot.GetMemoryMap(make([]byte, 4096))

	if err != nil {
		t.Fatal(err)
	}

	if m.DescriptorSize() != 48 || n.DescriptorSize() != 56 {
		t.Fatalf("unexpected strides %d/%d", m.DescriptorSize(), n.DescriptorSize())
	}

	for i := 0; i < m.Len(); i++ {
		d, _ := m.Descriptor(i)
		e, _ := n.Descriptor(i)

		if *d != *e {
			t.Errorf("descriptor %d mismatch across calls", i)
		}
	}
}

func TestMemoryMapTooSmall(t *testing.T) {
	f, s := setup(t)

	buf := make([]byte, 16)
	_, err := s.Boot.GetMemoryMap(buf)

	var sizeErr *uefi.SizeError

	if !errors.As(err, &sizeErr) || !errors.Is(err, uefi.ErrBufferTooSmall) {
		t.Fatalf("unexpected error %v", err)
	}

	if sizeErr.Required != len(f.MemoryMap)*f.DescriptorSize || sizeErr.Capacity != len(buf) {
		t.Fatalf("unexpected size error %+v", sizeErr)
	}

	for _, b := range buf {
		if b != 0 {
			t.Fatal("buffer filled on failure")
		}
	}

	m, err := s.Boot.GetMemoryMap(make([]byte, sizeErr.Required))

	if err != nil {
		t.Fatal(err)
	}

	if m.Len() != len(f.MemoryMap) {
		t.Fatalf("unexpected descriptor count %d", m.Len())
	}

	if f.Calls["GetMemoryMap"] != 2 {
		t.Fatalf("unexpected call count %d", f.Calls["GetMemoryMap"])
	}
}

func TestMemoryMapNegotiate(t *testing.T) {
	f, s := setup(t)

	defer func(size int) {
		uefi.MemoryMapSize = size
	}(uefi.MemoryMapSize)

	uefi.MemoryMapSize = 64
	f.MapGrowth = 2

	key := f.MapKey
	m, err := s.Boot.MemoryMap()

	if err != nil {
		t.Fatal(err)
	}

	if m.Len() != len(f.MemoryMap) || m.Len() != len(sim.DefaultMemoryMap())+2 {
		t.Fatalf("unexpected descriptor count %d", m.Len())
	}

	if m.Key() != key+2 || m.Key() != f.MapKey {
		t.Fatalf("unexpected map key %#x", m.Key())
	}

	if f.Calls["GetMemoryMap"] != 2 {
		t.Fatalf("unexpected call count %d", f.Calls["GetMemoryMap"])
	}
}

func TestMemoryMapError(t *testing.T) {
	f, s := setup(t)

	f.Fail("GetMemoryMap", uefi.ErrInvalidParameter)

	if _, err := s.Boot.MemoryMap(); !errors.Is(err, uefi.ErrInvalidParameter) {
		t.Fatalf("unexpected error %v", err)
	}

	if f.Calls["GetMemoryMap"] != 1 {
		t.Fatalf("unexpected call count %d", f.Calls["GetMemoryMap"])
	}
}

func TestMemoryMapBounds(t *testing.T) {
	buf := make([]byte, 128)

	for i := range buf {
		buf[i] = 0xff
	}

	// two descriptors with a 48 byte stride, the map is truncated within
	// the second one
	for i := 0; i < 60; i++ {
		buf[i] = 0x00
	}

	buf[48] = uefi.EfiConventionalMemory

	m := uefi.NewMemoryMapView(buf, 60, 48)

	if m.Len() != 2 {
		t.Fatalf("unexpected descriptor count %d", m.Len())
	}

	d, ok := m.Descriptor(1)

	if !ok {
		t.Fatal("in range descriptor not returned")
	}

	if d.Type != uefi.EfiConventionalMemory || d.PhysicalStart != 0 || d.NumberOfPages != 0 || d.Attribute != 0 {
		t.Fatalf("bytes past the map size have been read (%+v)", d)
	}
}

func TestE820(t *testing.T) {
	for _, test := range []struct {
		memoryType uint32
		e820       uint32
	}{
		{uefi.EfiConventionalMemory, uint32(bzimage.RAM)},
		{uefi.EfiBootServicesData, uint32(bzimage.RAM)},
		{uefi.EfiACPIReclaimMemory, uint32(bzimage.ACPI)},
		{uefi.EfiACPIMemoryNVS, uint32(bzimage.NVS)},
		{uefi.EfiPersistentMemory, uefi.AddressRangePersistentMemory},
		{uefi.EfiRuntimeServicesData, uint32(bzimage.Reserved)},
		{uefi.EfiMemoryMappedIO, uint32(bzimage.Reserved)},
	} {
		d := &uefi.MemoryDescriptor{
			Type:          test.memoryType,
			PhysicalStart: 0x100000,
			NumberOfPages: 0x10,
		}

		e := d.E820()

		if uint32(e.MemType) != test.e820 || e.Addr != 0x100000 || e.Size != 0x10000 {
			t.Errorf("%s: unexpected entry %+v", uefi.MemoryTypeName(test.memoryType), e)
		}
	}
}

func TestAllocatePages(t *testing.T) {
	f, s := setup(t)

	n := len(f.MemoryMap)

	if err := s.Boot.AllocatePages(uefi.AllocateAddress, uefi.EfiLoaderData, uefi.PageSize+1, 0x40000000); err != nil {
		t.Fatal(err)
	}

	if len(f.Allocations) != 1 {
		t.Fatal("allocation not performed")
	}

	a := f.Allocations[0]

	if a.Pages != 2 || a.Address != 0x40000000 || a.MemoryType != uefi.EfiLoaderData {
		t.Fatalf("unexpected allocation %+v", a)
	}

	m, err := s.Boot.MemoryMap()

	if err != nil {
		t.Fatal(err)
	}

	if m.Len() != n+1 {
		t.Fatalf("allocation missing from memory map")
	}
}

func TestMemoryTypeName(t *testing.T) {
	if name := uefi.MemoryTypeName(uefi.EfiConventionalMemory); name != "Conventional" {
		t.Fatalf("unexpected name %s", name)
	}

	if name := uefi.MemoryTypeName(0x80000000); name != "OEM" {
		t.Fatalf("unexpected name %s", name)
	}
}
