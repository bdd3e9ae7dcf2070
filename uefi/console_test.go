// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/usbarmory/go-preboot/uefi"
)

func TestOutputString(t *testing.T) {
	f, s := setup(t)

	if err := s.Console.OutputString("hello"); err != nil {
		t.Fatal(err)
	}

	if len(f.Output) != 1 || f.Output[0] != "hello" {
		t.Fatalf("unexpected output %q", f.Output)
	}
}

func TestOutputStringTruncation(t *testing.T) {
	f, s := setup(t)

	long := strings.Repeat("x", uefi.DefaultCapacity+20)

	if err := s.Console.OutputString(long); err != nil {
		t.Fatal(err)
	}

	if f.Output[0] != long[:uefi.DefaultCapacity] {
		t.Fatalf("unexpected output length %d", len(f.Output[0]))
	}

	s.Console.Capacity = 4

	if err := s.Console.OutputString("truncated"); err != nil {
		t.Fatal(err)
	}

	if f.Output[1] != "trun" {
		t.Fatalf("unexpected output %q", f.Output[1])
	}
}

func TestConsoleWrite(t *testing.T) {
	f, s := setup(t)

	s.Console.Capacity = 8

	msg := "line one\nline\ttwo\n"
	n, err := io.WriteString(s.Console, msg)

	if err != nil {
		t.Fatal(err)
	}

	if n != len(msg) {
		t.Fatalf("unexpected write length %d", n)
	}

	expected := "line one\n\rline" + strings.Repeat(" ", 8) + "two\n\r"

	if out := strings.Join(f.Output, ""); out != expected {
		t.Fatalf("unexpected output %q", out)
	}

	for _, chunk := range f.Output {
		if len(chunk) > 8 {
			t.Fatalf("chunk exceeds capacity (%q)", chunk)
		}
	}
}

func TestConsoleResetClear(t *testing.T) {
	f, s := setup(t)

	if err := s.Console.Reset(false); err != nil {
		t.Fatal(err)
	}

	s.Console.OutputString("stale")

	if err := s.Console.ClearScreen(); err != nil {
		t.Fatal(err)
	}

	if f.Resets != 1 || len(f.Output) != 0 {
		t.Fatalf("unexpected console state (%d, %q)", f.Resets, f.Output)
	}
}

func TestConsoleOutputError(t *testing.T) {
	f, s := setup(t)

	f.Fail("OutputString", uefi.ErrDeviceError)

	if _, err := s.Console.Write([]byte("x")); !errors.Is(err, uefi.ErrDeviceError) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestConsoleRead(t *testing.T) {
	f, s := setup(t)

	f.Keys = []uint16{'o', 'k', 0x00e8}

	buf := make([]byte, 16)
	n, err := s.Console.Read(buf)

	if err != nil {
		t.Fatal(err)
	}

	if string(buf[:n]) != "okè" {
		t.Fatalf("unexpected input %q", buf[:n])
	}

	if n, err = s.Console.Read(buf); n != 0 || err != nil {
		t.Fatalf("unexpected result %d, %v", n, err)
	}
}

func TestConsoleWithoutInput(t *testing.T) {
	f, _ := setup(t)

	c := uefi.NewConsole(f, 0, f.ConOut)
	k := &uefi.InputKey{}

	if err := c.Input(k); !errors.Is(err, uefi.ErrNotReady) {
		t.Fatalf("unexpected error %v", err)
	}
}
