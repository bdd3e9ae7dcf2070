// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/usbarmory/go-preboot/probe"
	"github.com/usbarmory/go-preboot/shell"
	"github.com/usbarmory/go-preboot/uefi"
)

const guidExpr = `[[:xdigit:]]{8}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{12}`

// UEFI represents the services used by all UEFI commands.
var UEFI *uefi.Services

func init() {
	shell.Add(shell.Cmd{
		Name: "uefi",
		Help: "UEFI information",
		Fn:   uefiCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "memmap",
		Args:    1,
		Pattern: regexp.MustCompile(`^memmap(?: (e820))?$`),
		Syntax:  "(e820)?",
		Help:    "EFI_BOOT_SERVICES.GetMemoryMap()",
		Fn:      memmapCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "handles",
		Args:    1,
		Pattern: regexp.MustCompile(`^handles(?: (` + guidExpr + `))?$`),
		Syntax:  "(<registry format GUID>)?",
		Help:    "EFI_BOOT_SERVICES.LocateHandle()",
		Fn:      handlesCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "protocol",
		Args:    1,
		Pattern: regexp.MustCompile(`^protocol (` + guidExpr + `)$`),
		Syntax:  "<registry format GUID>",
		Help:    "EFI_BOOT_SERVICES.LocateProtocol()",
		Fn:      locateCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "open",
		Args:    1,
		Pattern: regexp.MustCompile(`^open (.+)$`),
		Syntax:  "<path>",
		Help:    "EFI_FILE_PROTOCOL.Open() on the boot volume",
		Fn:      openCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "alloc",
		Args:    2,
		Pattern: regexp.MustCompile(`^alloc ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex offset> <size>",
		Help:    "EFI_BOOT_SERVICES.AllocatePages()",
		Fn:      allocCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "watchdog",
		Args:    1,
		Pattern: regexp.MustCompile(`^watchdog (\d+)$`),
		Syntax:  "<seconds>",
		Help:    "EFI_BOOT_SERVICES.SetWatchdogTimer()",
		Fn:      watchdogCmd,
	})

	shell.Add(shell.Cmd{
		Name: "probe",
		Help: "run the boot flow",
		Fn:   probeCmd,
	})
}

func services() (*uefi.Services, error) {
	if UEFI == nil || UEFI.Boot == nil {
		return nil, errors.New("EFI services are not available")
	}

	return UEFI, nil
}

func uefiCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer
	var s *uefi.Services

	if s, err = services(); err != nil {
		return
	}

	t := s.SystemTable

	fmt.Fprintf(&buf, "Firmware Vendor ....: %s\n", s.Vendor())
	fmt.Fprintf(&buf, "Firmware Revision ..: %#x\n", t.FirmwareRevision)
	fmt.Fprintf(&buf, "Image Handle .......: %#x\n", s.ImageHandle())
	fmt.Fprintf(&buf, "System Table .......: %#x\n", s.Address())
	fmt.Fprintf(&buf, "Runtime Services ...: %#x\n", t.RuntimeServices)
	fmt.Fprintf(&buf, "Boot Services ......: %#x\n", s.Boot.Address())
	fmt.Fprintf(&buf, "Configuration Tables: %#x\n", t.ConfigurationTable)

	if c, err := s.ConfigurationTables(); err == nil {
		for _, t := range c {
			fmt.Fprintf(&buf, "  %s (%#x)\n", t.GUID.Name(), t.VendorTable)
		}
	}

	return buf.String(), nil
}

func memmapCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var buf bytes.Buffer
	var s *uefi.Services
	var memoryMap *uefi.MemoryMap

	if s, err = services(); err != nil {
		return
	}

	if memoryMap, err = s.Boot.MemoryMap(); err != nil {
		return
	}

	if arg[0] == "e820" {
		fmt.Fprintf(&buf, "Start            End              Type\n")

		for _, desc := range memoryMap.Descriptors() {
			e := desc.E820()
			fmt.Fprintf(&buf, "%016x %016x %d\n", e.Addr, e.Addr+e.Size-1, e.MemType)
		}

		return buf.String(), nil
	}

	fmt.Fprintf(&buf, "Type                Start            End              Pages            Attributes\n")

	for _, desc := range memoryMap.Descriptors() {
		fmt.Fprintf(&buf, "%-19s %016x %016x %016x %016x\n",
			uefi.MemoryTypeName(desc.Type), desc.PhysicalStart, desc.PhysicalEnd()-1, desc.NumberOfPages, desc.Attribute)
	}

	fmt.Fprintf(&buf, "%d descriptors, stride %d, version %d, key %#x",
		memoryMap.Len(), memoryMap.DescriptorSize(), memoryMap.DescriptorVersion(), memoryMap.Key())

	return buf.String(), nil
}

func handlesCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var buf bytes.Buffer
	var s *uefi.Services
	var set *uefi.HandleSet
	var guid uefi.GUID

	if s, err = services(); err != nil {
		return
	}

	searchType := uefi.AllHandles

	if len(arg[0]) > 0 {
		if guid, err = uefi.ParseGUID(arg[0]); err != nil {
			return
		}

		searchType = uefi.ByProtocol
	}

	if set, err = s.Boot.Handles(searchType, guid); err != nil {
		return
	}

	for _, h := range set.Handles() {
		fmt.Fprintf(&buf, "%#016x\n", h)
	}

	fmt.Fprintf(&buf, "%d handles", set.Len())

	return buf.String(), nil
}

func locateCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var s *uefi.Services
	var guid uefi.GUID
	var addr uint64

	if s, err = services(); err != nil {
		return
	}

	if guid, err = uefi.ParseGUID(arg[0]); err != nil {
		return
	}

	if addr, err = s.Boot.LocateProtocol(guid); err != nil {
		return
	}

	return fmt.Sprintf("%s: %#08x", guid.Name(), addr), nil
}

func openCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var s *uefi.Services
	var root *uefi.File
	var f *uefi.File

	if s, err = services(); err != nil {
		return
	}

	if root, err = s.Root(); err != nil {
		return
	}

	if f, err = root.Open(arg[0], uefi.EFI_FILE_MODE_READ, 0); err != nil {
		return
	}

	return fmt.Sprintf("%s: %#08x (revision %#x)", f.Name(), f.Address(), f.Revision), nil
}

func allocCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var s *uefi.Services

	if s, err = services(); err != nil {
		return
	}

	addr, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	size, err := strconv.ParseUint(arg[1], 10, 64)

	if err != nil {
		return "", fmt.Errorf("invalid size, %v", err)
	}

	if addr%uefi.PageSize != 0 || size == 0 {
		return "", errors.New("address must be page aligned and size non-zero")
	}

	log.Printf("allocating memory range %#08x - %#08x", addr, addr+size)

	err = s.Boot.AllocatePages(
		uefi.AllocateAddress,
		uefi.EfiLoaderData,
		int(size),
		addr,
	)

	return
}

func watchdogCmd(_ *shell.Interface, arg []string) (res string, err error) {
	var s *uefi.Services

	if s, err = services(); err != nil {
		return
	}

	sec, err := strconv.Atoi(arg[0])

	if err != nil {
		return "", fmt.Errorf("invalid timeout, %v", err)
	}

	return "", s.Boot.SetWatchdogTimer(sec)
}

func probeCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer
	var s *uefi.Services
	var r *probe.Report

	if s, err = services(); err != nil {
		return
	}

	r, err = probe.Run(s, probe.DefaultConfig())

	for _, line := range r.Lines() {
		fmt.Fprintln(&buf, line)
	}

	return buf.String(), err
}
