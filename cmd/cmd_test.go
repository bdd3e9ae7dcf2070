// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/usbarmory/go-preboot/shell"
	"github.com/usbarmory/go-preboot/uefi"
	"github.com/usbarmory/go-preboot/uefi/sim"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func setup(t *testing.T, files ...string) *sim.Firmware {
	t.Helper()

	f := sim.New(files...)
	s, err := f.Services()

	if err != nil {
		t.Fatal(err)
	}

	UEFI = s
	t.Cleanup(func() { UEFI = nil })

	return f
}

func exec(t *testing.T, line string) string {
	t.Helper()

	res, err := (&shell.Interface{}).Exec(line)

	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}

	return res
}

func TestUnavailable(t *testing.T) {
	if _, err := (&shell.Interface{}).Exec("memmap"); err == nil {
		t.Fatal("command executed without services")
	}
}

func TestUEFI(t *testing.T) {
	setup(t)

	res := exec(t, "uefi")

	for _, s := range []string{sim.Vendor, "EFI_ACPI_20_TABLE"} {
		if !strings.Contains(res, s) {
			t.Errorf("missing %q", s)
		}
	}
}

func TestMemmap(t *testing.T) {
	f := setup(t)

	res := exec(t, "memmap")

	if !strings.Contains(res, "LoaderCode") || !strings.Contains(res, "stride 48") {
		t.Fatalf("unexpected output %s", res)
	}

	if n := strings.Count(res, "\n"); n != len(f.MemoryMap)+1 {
		t.Fatalf("unexpected line count %d", n)
	}

	res = exec(t, "memmap e820")

	if !strings.Contains(res, fmt.Sprintf("%016x", uint64(sim.ImageBase))) {
		t.Fatalf("unexpected output %s", res)
	}
}

func TestHandles(t *testing.T) {
	f := setup(t)

	res := exec(t, "handles")

	if !strings.HasSuffix(res, "3 handles") {
		t.Fatalf("unexpected output %s", res)
	}

	res = exec(t, "handles "+uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID.String())

	if !strings.Contains(res, fmt.Sprintf("%#016x", f.DeviceHandle)) || !strings.HasSuffix(res, "1 handles") {
		t.Fatalf("unexpected output %s", res)
	}
}

func TestProtocol(t *testing.T) {
	f := setup(t)

	res := exec(t, "protocol "+uefi.EFI_LOADED_IMAGE_PROTOCOL_GUID.String())

	if res != fmt.Sprintf("EFI_LOADED_IMAGE_PROTOCOL: %#08x", f.LoadedImage) {
		t.Fatalf("unexpected output %s", res)
	}

	_, err := (&shell.Interface{}).Exec("protocol " + uefi.EFI_GRAPHICS_OUTPUT_PROTOCOL_GUID.String())

	if !errors.Is(err, uefi.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOpen(t *testing.T) {
	setup(t, "kernel.elf")

	if res := exec(t, "open kernel.elf"); !strings.HasPrefix(res, "kernel.elf: ") {
		t.Fatalf("unexpected output %s", res)
	}

	if _, err := (&shell.Interface{}).Exec("open missing"); !errors.Is(err, uefi.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAlloc(t *testing.T) {
	f := setup(t)

	exec(t, "alloc 40000000 8192")

	if len(f.Allocations) != 1 || f.Allocations[0].Pages != 2 {
		t.Fatalf("unexpected allocations %+v", f.Allocations)
	}

	if _, err := (&shell.Interface{}).Exec("alloc 40000010 8192"); err == nil {
		t.Fatal("unaligned allocation accepted")
	}
}

func TestWatchdog(t *testing.T) {
	f := setup(t)

	exec(t, "watchdog 0")

	if f.WatchdogTimeout != 0 {
		t.Fatalf("unexpected timeout %d", f.WatchdogTimeout)
	}
}

func TestProbe(t *testing.T) {
	setup(t)

	if res := exec(t, "probe"); !strings.Contains(res, "boot volume located") {
		t.Fatalf("unexpected output %s", res)
	}
}

func TestCommon(t *testing.T) {
	if res := exec(t, "uptime"); len(res) == 0 {
		t.Fatal("empty uptime")
	}

	if res := exec(t, "date"); len(res) == 0 {
		t.Fatal("empty date")
	}

	if _, err := (&shell.Interface{}).Exec("quit"); err != io.EOF {
		t.Fatalf("unexpected error %v", err)
	}
}
