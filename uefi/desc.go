// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

func unmarshalBinary(buf []byte, data any) (err error) {
	_, err = binary.Decode(buf, binary.LittleEndian, data)
	return
}

// decode copies a firmware structure at the argument address into data, the
// structure layout must match the firmware one exactly.
func decode(fw Firmware, data any, addr uint64) (err error) {
	if addr == 0 {
		return errors.New("invalid address")
	}

	n := binary.Size(data)

	if n <= 0 {
		return errors.New("invalid structure")
	}

	buf := make([]byte, n)

	if err = fw.Read(addr, buf); err != nil {
		return
	}

	return unmarshalBinary(buf, data)
}

// toUTF16 converts a string to a NUL terminated UTF-16 byte slice.
func toUTF16(s string) []byte {
	var buf []byte

	for _, r := range utf16.Encode([]rune(s)) {
		buf = append(buf, byte(r&0xff), byte(r>>8))
	}

	return append(buf, 0x00, 0x00)
}

// fromUTF16 converts a (possibly NUL terminated) UTF-16 byte slice to a
// string.
func fromUTF16(buf []byte) string {
	var s []uint16

	for i := 0; i+1 < len(buf); i += 2 {
		r := binary.LittleEndian.Uint16(buf[i:])

		if r == 0 {
			break
		}

		s = append(s, r)
	}

	return string(utf16.Decode(s))
}
