// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package x64

import (
	_ "unsafe"

	"github.com/usbarmory/go-preboot/uefi"
)

// Console represents the UEFI console used for standard output, it is set to
// the early Simple Text protocol instances received at entry and replaced
// with the UEFI services one once initialized.
var Console = uefi.NewConsole(&Firmware{}, conIn, conOut)

//go:linkname printk runtime.printk
func printk(c byte) {
	UART0.Tx(c)

	if Console != nil {
		Console.Write([]byte{c})
	}
}
