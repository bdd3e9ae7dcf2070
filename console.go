// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64 && console

package main

import (
	_ "github.com/usbarmory/go-preboot/cmd"
	"github.com/usbarmory/go-preboot/shell"
	"github.com/usbarmory/go-preboot/uefi/x64"
)

func init() {
	console = func() {
		iface := &shell.Interface{
			Banner:     banner(),
			ReadWriter: x64.UEFI.Console,
		}

		iface.Start()
	}
}
