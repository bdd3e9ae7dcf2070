// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
)

// EFI_STATUS error bit
const errorBit = 1 << 63

// EFI Status Codes
const (
	EFI_SUCCESS = iota
	EFI_LOAD_ERROR
	EFI_INVALID_PARAMETER
	EFI_UNSUPPORTED
	EFI_BAD_BUFFER_SIZE
	EFI_BUFFER_TOO_SMALL
	EFI_NOT_READY
	EFI_DEVICE_ERROR
	EFI_WRITE_PROTECTED
	EFI_OUT_OF_RESOURCES
	EFI_VOLUME_CORRUPTED
	EFI_VOLUME_FULL
	EFI_NO_MEDIA
	EFI_MEDIA_CHANGED
	EFI_NOT_FOUND
	EFI_ACCESS_DENIED
)

var statusNames = map[uint64]string{
	EFI_SUCCESS:           "EFI_SUCCESS",
	EFI_LOAD_ERROR:        "EFI_LOAD_ERROR",
	EFI_INVALID_PARAMETER: "EFI_INVALID_PARAMETER",
	EFI_UNSUPPORTED:       "EFI_UNSUPPORTED",
	EFI_BAD_BUFFER_SIZE:   "EFI_BAD_BUFFER_SIZE",
	EFI_BUFFER_TOO_SMALL:  "EFI_BUFFER_TOO_SMALL",
	EFI_NOT_READY:         "EFI_NOT_READY",
	EFI_DEVICE_ERROR:      "EFI_DEVICE_ERROR",
	EFI_WRITE_PROTECTED:   "EFI_WRITE_PROTECTED",
	EFI_OUT_OF_RESOURCES:  "EFI_OUT_OF_RESOURCES",
	EFI_VOLUME_CORRUPTED:  "EFI_VOLUME_CORRUPTED",
	EFI_VOLUME_FULL:       "EFI_VOLUME_FULL",
	EFI_NO_MEDIA:          "EFI_NO_MEDIA",
	EFI_MEDIA_CHANGED:     "EFI_MEDIA_CHANGED",
	EFI_NOT_FOUND:         "EFI_NOT_FOUND",
	EFI_ACCESS_DENIED:     "EFI_ACCESS_DENIED",
}

// Status represents a non-successful EFI_STATUS returned by firmware.
type Status uint64

// Error status values, suitable for use with [errors.Is].
const (
	ErrLoadError        = Status(errorBit | EFI_LOAD_ERROR)
	ErrInvalidParameter = Status(errorBit | EFI_INVALID_PARAMETER)
	ErrUnsupported      = Status(errorBit | EFI_UNSUPPORTED)
	ErrBadBufferSize    = Status(errorBit | EFI_BAD_BUFFER_SIZE)
	ErrBufferTooSmall   = Status(errorBit | EFI_BUFFER_TOO_SMALL)
	ErrNotReady         = Status(errorBit | EFI_NOT_READY)
	ErrDeviceError      = Status(errorBit | EFI_DEVICE_ERROR)
	ErrOutOfResources   = Status(errorBit | EFI_OUT_OF_RESOURCES)
	ErrNotFound         = Status(errorBit | EFI_NOT_FOUND)
	ErrAccessDenied     = Status(errorBit | EFI_ACCESS_DENIED)
)

// Code returns the status code without the error bit.
func (s Status) Code() uint64 {
	return uint64(s) &^ errorBit
}

// Error implements the error interface.
func (s Status) Error() string {
	if name, ok := statusNames[s.Code()]; ok {
		return fmt.Sprintf("%s (%#x)", name, uint64(s))
	}

	return fmt.Sprintf("EFI_STATUS error %#x (%d)", uint64(s), s.Code())
}

// SizeError is returned by enumeration services reporting
// EFI_BUFFER_TOO_SMALL, it carries the buffer size required by firmware.
type SizeError struct {
	// Required is the buffer size, in bytes, reported by firmware.
	Required int
	// Capacity is the buffer size, in bytes, passed to firmware.
	Capacity int
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%v, %d bytes required (have %d)", ErrBufferTooSmall, e.Required, e.Capacity)
}

// Unwrap returns [ErrBufferTooSmall].
func (e *SizeError) Unwrap() error {
	return ErrBufferTooSmall
}

func parseStatus(status uint64) (err error) {
	if status == EFI_SUCCESS {
		return
	}

	return Status(status)
}
