// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Services offset for SetWatchdogTimer
const setWatchdogTimer = 0x100

// WatchdogCode is the code passed to SetWatchdogTimer(), values up to 0xffff
// are reserved to firmware.
const WatchdogCode = 0x10000

// SetWatchdogTimer calls EFI_BOOT_SERVICES.SetWatchdogTimer(), firmware
// resets the platform when the timer expires while boot services are
// active.
//
// A zero timeout disables the watchdog, which is required by applications
// not meant to return to firmware.
func (s *BootServices) SetWatchdogTimer(sec int) (err error) {
	if sec < 0 {
		return ErrInvalidParameter
	}

	status := s.fw.Call(s.base+setWatchdogTimer,
		[]uint64{
			uint64(sec),
			WatchdogCode,
			0,
			0,
		},
	)

	return parseStatus(status)
}
