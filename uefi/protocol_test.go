// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi_test

import (
	"errors"
	"testing"

	"github.com/usbarmory/go-preboot/uefi"
)

type simpleFileSystem struct {
	Revision   uint64
	OpenVolume uint64
}

func TestProtocolLookupAgreement(t *testing.T) {
	f, s := setup(t)

	guid := uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID

	direct, err := s.Boot.HandleProtocol(f.DeviceHandle, guid)

	if err != nil {
		t.Fatal(err)
	}

	opened, err := s.Boot.OpenProtocol(f.DeviceHandle, guid, s.ImageHandle(), 0, uefi.EFI_OPEN_PROTOCOL_GET_PROTOCOL)

	if err != nil {
		t.Fatal(err)
	}

	singleton, err := s.Boot.LocateProtocol(guid)

	if err != nil {
		t.Fatal(err)
	}

	var revisions []uint64

	for _, addr := range []uint64{direct, opened, singleton} {
		var sfs simpleFileSystem

		if err := uefi.Decode(f, &sfs, addr); err != nil {
			t.Fatal(err)
		}

		revisions = append(revisions, sfs.Revision)
	}

	for i, rev := range revisions {
		if rev != uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION {
			t.Errorf("lookup %d: unexpected revision %#x", i, rev)
		}
	}

	if direct != opened || opened != singleton {
		t.Fatalf("lookups disagree (%#x, %#x, %#x)", direct, opened, singleton)
	}
}

func TestGetProtocolAgent(t *testing.T) {
	f, s := setup(t)

	if _, err := s.Boot.GetProtocol(f.DeviceHandle, uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID); err != nil {
		t.Fatal(err)
	}

	if len(f.Opened) != 1 {
		t.Fatalf("unexpected open requests %+v", f.Opened)
	}

	req := f.Opened[0]

	if req.Agent != f.ImageHandle || req.Handle != f.DeviceHandle || req.Controller != 0 {
		t.Fatalf("unexpected open request %+v", req)
	}

	if req.Attributes != uefi.EFI_OPEN_PROTOCOL_BY_HANDLE_PROTOCOL || req.GUID != uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID {
		t.Fatalf("unexpected open request %+v", req)
	}
}

func TestProtocolUnsupported(t *testing.T) {
	f, s := setup(t)

	// the image handle carries no file system protocol
	guid := uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID

	addr, err := s.Boot.HandleProtocol(f.ImageHandle, guid)

	if !errors.Is(err, uefi.ErrUnsupported) || addr != 0 {
		t.Fatalf("unexpected result %#x, %v", addr, err)
	}

	addr, err = s.Boot.GetProtocol(f.ImageHandle, guid)

	if !errors.Is(err, uefi.ErrUnsupported) || addr != 0 {
		t.Fatalf("unexpected result %#x, %v", addr, err)
	}

	if len(f.Opened) != 0 {
		t.Fatal("failed open request recorded")
	}
}

func TestLocateProtocolNotFound(t *testing.T) {
	_, s := setup(t)

	addr, err := s.Boot.LocateProtocol(uefi.EFI_GRAPHICS_OUTPUT_PROTOCOL_GUID)

	if !errors.Is(err, uefi.ErrNotFound) || addr != 0 {
		t.Fatalf("unexpected result %#x, %v", addr, err)
	}
}

func TestProtocolNilInterface(t *testing.T) {
	f, s := setup(t)

	f.Install(f.DeviceHandle, uefi.EFI_DEVICE_PATH_PROTOCOL_GUID, 0)

	addr, err := s.Boot.HandleProtocol(f.DeviceHandle, uefi.EFI_DEVICE_PATH_PROTOCOL_GUID)

	if !errors.Is(err, uefi.ErrNilInterface) || addr != 0 {
		t.Fatalf("unexpected result %#x, %v", addr, err)
	}
}

func TestLoadedImage(t *testing.T) {
	f, s := setup(t)

	image, err := s.Boot.LoadedImage(s.ImageHandle())

	if err != nil {
		t.Fatal(err)
	}

	if image.DeviceHandle != f.DeviceHandle || image.SystemTable != s.Address() {
		t.Fatalf("unexpected loaded image %+v", image)
	}

	if image.ImageBase != 0x00100000 || image.ImageCodeType != uefi.EfiLoaderCode {
		t.Fatalf("unexpected loaded image %+v", image)
	}
}

func TestLoadedImageUnsupported(t *testing.T) {
	f, s := setup(t)

	image, err := s.Boot.LoadedImage(f.DeviceHandle)

	if !errors.Is(err, uefi.ErrUnsupported) || image != nil {
		t.Fatalf("unexpected result %+v, %v", image, err)
	}
}

func TestSetWatchdogTimer(t *testing.T) {
	f, s := setup(t)

	if err := s.Boot.SetWatchdogTimer(0); err != nil {
		t.Fatal(err)
	}

	if f.WatchdogTimeout != 0 {
		t.Fatalf("watchdog not disabled (%d)", f.WatchdogTimeout)
	}

	if err := s.Boot.SetWatchdogTimer(-1); !errors.Is(err, uefi.ErrInvalidParameter) {
		t.Fatalf("unexpected error %v", err)
	}

	if f.Calls["SetWatchdogTimer"] != 1 {
		t.Fatal("invalid timeout passed to firmware")
	}
}
