// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"runtime"
	"unicode/utf16"
	"unicode/utf8"
)

// EFI Simple Text Output Protocol offsets
const (
	reset        = 0x00
	outputString = 0x08
	clearScreen  = 0x30
)

// EFI Simple Text Input Protocol offset for ReadKeyStroke
const readKeyStroke = 0x08

// DefaultCapacity is the default console output buffer size, in UTF-16 code
// units excluding the NUL terminator.
const DefaultCapacity = 100

// InputKey represents an EFI Input Key descriptor.
type InputKey struct {
	ScanCode    uint16
	UnicodeChar uint16
}

// Console implements the [io.ReadWriter] interface over EFI Simple Text
// Input/Output protocol.
type Console struct {
	// ForceLine controls whether line feeds (LF) should be supplemented
	// with a carriage return (CR).
	ForceLine bool

	// ReplaceTabs controls whether Console I/O output should have Tab
	// characters replaced with a number of spaces.
	ReplaceTabs int

	// Capacity is the output buffer size, in UTF-16 code units, strings
	// passed to OutputString() are truncated to it.
	Capacity int

	fw  Firmware
	in  uint64
	out uint64
}

// NewConsole returns a console for the argument Simple Text Input and Output
// protocol instances, either one can be zero to disable it.
func NewConsole(fw Firmware, in uint64, out uint64) *Console {
	return &Console{
		ForceLine:   true,
		ReplaceTabs: 8,
		Capacity:    DefaultCapacity,
		fw:          fw,
		in:          in,
		out:         out,
	}
}

func (c *Console) capacity() int {
	if c.Capacity <= 0 {
		return DefaultCapacity
	}

	return c.Capacity
}

func (c *Console) output(s []uint16) (err error) {
	if c.out == 0 {
		return
	}

	buf := make([]uint16, len(s)+1)
	copy(buf, s)

	status := c.fw.Call(c.out+outputString,
		[]uint64{
			c.out,
			ptrval(&buf[0]),
		},
	)
	runtime.KeepAlive(buf)

	return parseStatus(status)
}

// Reset calls EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.Reset().
func (c *Console) Reset(extendedVerification bool) (err error) {
	var ext uint64

	if c.out == 0 {
		return
	}

	if extendedVerification {
		ext = 1
	}

	status := c.fw.Call(c.out+reset,
		[]uint64{
			c.out,
			ext,
		},
	)

	return parseStatus(status)
}

// ClearScreen calls EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.ClearScreen().
func (c *Console) ClearScreen() (err error) {
	if c.out == 0 {
		return
	}

	status := c.fw.Call(c.out+clearScreen,
		[]uint64{
			c.out,
		},
	)

	return parseStatus(status)
}

// OutputString calls EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.OutputString(), strings
// longer than the console capacity are silently truncated.
func (c *Console) OutputString(s string) (err error) {
	b := utf16.Encode([]rune(s))

	if n := c.capacity(); len(b) > n {
		b = b[:n]
	}

	return c.output(b)
}

// Input calls EFI_SIMPLE_TEXT_INPUT_PROTOCOL.ReadKeyStroke().
func (c *Console) Input(k *InputKey) (err error) {
	if c.in == 0 {
		return ErrNotReady
	}

	status := c.fw.Call(c.in+readKeyStroke,
		[]uint64{
			c.in,
			ptrval(k),
		},
	)

	return parseStatus(status)
}

// Read available data to buffer from console, key strokes are returned UTF-8
// encoded.
func (c *Console) Read(p []byte) (n int, err error) {
	k := &InputKey{}

	for n+utf8.UTFMax <= len(p) {
		switch err = c.Input(k); err {
		case nil:
			n += utf8.EncodeRune(p[n:], rune(k.UnicodeChar))
		case ErrNotReady:
			return n, nil
		default:
			return
		}
	}

	return
}

// Write data from buffer to console, the output is split in chunks not
// exceeding the console capacity.
func (c *Console) Write(p []byte) (n int, err error) {
	var s []uint16

	if len(p) == 0 {
		return
	}

	// We receive an UTF-8 string but we can output only UTF-16 ones.
	for _, r := range utf16.Encode([]rune(string(p))) {
		if r == 0x09 && c.ReplaceTabs > 0 { // Tab
			for i := 0; i < c.ReplaceTabs; i++ {
				s = append(s, 0x20) // Space
			}
			continue
		}

		s = append(s, r)

		if r == 0x0a && c.ForceLine { // LF
			s = append(s, 0x0d) // CR
		}
	}

	for size := c.capacity(); len(s) > 0; {
		chunk := s[:min(size, len(s))]

		if err = c.output(chunk); err != nil {
			return
		}

		s = s[len(chunk):]
	}

	return len(p), nil
}
