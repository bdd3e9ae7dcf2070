// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"errors"
	"testing"

	"github.com/usbarmory/go-preboot/uefi"
)

func TestReadWrite(t *testing.T) {
	f := New()

	addr := f.Alloc(8)

	if err := f.Write(addr, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 4)

	if err := f.Read(addr, buf); err != nil || buf[3] != 4 {
		t.Fatalf("unexpected read %x, %v", buf, err)
	}

	if err := f.Read(addr+4, make([]byte, 8)); err == nil {
		t.Fatal("read past region end")
	}

	if err := f.Read(0x1000, buf); err == nil {
		t.Fatal("read at invalid address")
	}
}

func TestFail(t *testing.T) {
	f := New()

	s, err := f.Services()

	if err != nil {
		t.Fatal(err)
	}

	f.Fail("SetWatchdogTimer", uefi.ErrDeviceError)

	if err = s.Boot.SetWatchdogTimer(0); !errors.Is(err, uefi.ErrDeviceError) {
		t.Fatalf("unexpected error %v", err)
	}

	f.Fail("SetWatchdogTimer", 0)

	if err = s.Boot.SetWatchdogTimer(0); err != nil {
		t.Fatal(err)
	}

	if f.Calls["SetWatchdogTimer"] != 2 {
		t.Fatalf("unexpected call count %d", f.Calls["SetWatchdogTimer"])
	}
}

func TestCallEmptySlot(t *testing.T) {
	f := New()

	defer func() {
		if recover() == nil {
			t.Fatal("call through empty slot did not panic")
		}
	}()

	// RaiseTPL is not served
	f.Call(f.BootServices+0x18, nil)
}
