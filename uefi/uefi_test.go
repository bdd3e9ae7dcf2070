// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi_test

import (
	"testing"

	"github.com/usbarmory/go-preboot/uefi"
	"github.com/usbarmory/go-preboot/uefi/sim"
)

func TestInit(t *testing.T) {
	f, s := setup(t)

	if s.Address() != f.SystemTable || s.ImageHandle() != f.ImageHandle {
		t.Fatal("unexpected entry arguments")
	}

	if s.Boot.Address() != f.BootServices || s.Boot.ImageHandle() != f.ImageHandle {
		t.Fatal("unexpected boot services")
	}

	if s.SystemTable.Header.Revision != sim.SystemTableRevision {
		t.Fatalf("unexpected revision %#x", s.SystemTable.Header.Revision)
	}

	if vendor := s.Vendor(); vendor != sim.Vendor {
		t.Fatalf("unexpected vendor %q", vendor)
	}
}

func TestInitInvalid(t *testing.T) {
	f := sim.New()
	s := &uefi.Services{}

	if err := s.Init(nil, uint64(f.ImageHandle), f.SystemTable); err == nil {
		t.Fatal("nil firmware accepted")
	}

	if err := s.Init(f, uint64(f.ImageHandle), 0); err == nil {
		t.Fatal("nil system table accepted")
	}

	if err := f.Put(f.SystemTable, uint64(0xdeadbeef)); err != nil {
		t.Fatal(err)
	}

	if err := s.Init(f, uint64(f.ImageHandle), f.SystemTable); err == nil {
		t.Fatal("invalid signature accepted")
	}
}

func TestConfigurationTables(t *testing.T) {
	_, s := setup(t)

	tables, err := s.ConfigurationTables()

	if err != nil {
		t.Fatal(err)
	}

	if len(tables) != 1 || tables[0].VendorTable != sim.ACPITable {
		t.Fatalf("unexpected tables %+v", tables)
	}

	table, err := s.LocateConfiguration(uefi.EFI_ACPI_20_TABLE_GUID)

	if err != nil {
		t.Fatal(err)
	}

	if table.GUID.Name() != "EFI_ACPI_20_TABLE" {
		t.Fatalf("unexpected table %s", table.GUID.Name())
	}

	if _, err = s.LocateConfiguration(uefi.SMBIOS3_TABLE_GUID); err == nil {
		t.Fatal("missing table located")
	}
}
