// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
)

var guidPattern = regexp.MustCompile(`^([[:xdigit:]]{8})-([[:xdigit:]]{4})-([[:xdigit:]]{4})-([[:xdigit:]]{4})-([[:xdigit:]]{12})$`)

// Well-known protocol and table identifiers
var (
	EFI_LOADED_IMAGE_PROTOCOL_GUID       = MustParseGUID("5b1b31a1-9562-11d2-8e3f-00a0c969723b")
	EFI_DEVICE_PATH_PROTOCOL_GUID        = MustParseGUID("09576e91-6d3f-11d2-8e39-00a0c969723b")
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID = MustParseGUID("964e5b22-6459-11d2-8e39-00a0c969723b")
	EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL_GUID = MustParseGUID("387477c2-69c7-11d2-8e39-00a0c969723b")
	EFI_SIMPLE_TEXT_INPUT_PROTOCOL_GUID  = MustParseGUID("387477c1-69c7-11d2-8e39-00a0c969723b")
	EFI_GRAPHICS_OUTPUT_PROTOCOL_GUID    = MustParseGUID("9042a9de-23dc-4a38-96fb-7aded080516a")
	EFI_FILE_INFO_ID                     = MustParseGUID("09576e92-6d3f-11d2-8e39-00a0c969723b")
	EFI_ACPI_20_TABLE_GUID               = MustParseGUID("8868e871-e4f1-11d3-bc22-0080c73c8881")
	SMBIOS3_TABLE_GUID                   = MustParseGUID("f2fd1544-9794-4a2c-992e-e5bbcf20e394")
)

var knownGUIDs = map[GUID]string{
	EFI_LOADED_IMAGE_PROTOCOL_GUID:       "EFI_LOADED_IMAGE_PROTOCOL",
	EFI_DEVICE_PATH_PROTOCOL_GUID:        "EFI_DEVICE_PATH_PROTOCOL",
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID: "EFI_SIMPLE_FILE_SYSTEM_PROTOCOL",
	EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL_GUID: "EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL",
	EFI_SIMPLE_TEXT_INPUT_PROTOCOL_GUID:  "EFI_SIMPLE_TEXT_INPUT_PROTOCOL",
	EFI_GRAPHICS_OUTPUT_PROTOCOL_GUID:    "EFI_GRAPHICS_OUTPUT_PROTOCOL",
	EFI_FILE_INFO_ID:                     "EFI_FILE_INFO",
	EFI_ACPI_20_TABLE_GUID:               "EFI_ACPI_20_TABLE",
	SMBIOS3_TABLE_GUID:                   "SMBIOS3_TABLE",
}

// GUID represents an EFI GUID (Globally Unique Identifier) as a 16-byte array
// with the native EFI byte order.
//
// Note: The registry string format (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx)
// reorders the first three fields as little-endian. Internally, we keep the
// native EFI layout (as used in memory), i.e. 16 bytes where the first three
// fields are little-endian values.
type GUID [16]byte

// ParseGUID parses a GUID in registry string format into a native EFI GUID.
func ParseGUID(s string) (g GUID, err error) {
	var buf []byte

	m := guidPattern.FindStringSubmatch(s)

	if len(m) != 6 {
		return GUID{}, fmt.Errorf("invalid GUID format: %q", s)
	}

	off := 0

	for i, field := range m[1:] {
		if buf, err = hex.DecodeString(field); err != nil {
			return GUID{}, err
		}

		// the first three fields are stored little-endian
		if i < 3 {
			for j := range buf {
				g[off+j] = buf[len(buf)-1-j]
			}
		} else {
			copy(g[off:], buf)
		}

		off += len(buf)
	}

	return
}

// MustParseGUID is like ParseGUID but panics on error. It is intended for
// package level GUID declarations.
func MustParseGUID(s string) (g GUID) {
	var err error

	if g, err = ParseGUID(s); err != nil {
		panic(err)
	}

	return
}

// String returns the registry format string representation of the GUID.
// https://uefi.org/specs/UEFI/2.10/Apx_A_GUID_and_Time_Formats.html
func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		g[8:10],
		g[10:])
}

// Name returns the specification name of well-known identifiers, or the
// registry format string otherwise.
func (g GUID) Name() string {
	if name, ok := knownGUIDs[g]; ok {
		return name
	}

	return g.String()
}
