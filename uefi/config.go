// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
)

// ConfigurationTable represents an EFI Configuration Table.
type ConfigurationTable struct {
	GUID        GUID
	VendorTable uint64
}

// ConfigurationTables returns the EFI Configuration Tables.
func (s *Services) ConfigurationTables() (c []*ConfigurationTable, err error) {
	t := s.SystemTable

	if t.NumberOfTableEntries == 0 || t.ConfigurationTable == 0 {
		return nil, errors.New("EFI Configuration Table is invalid")
	}

	entrySize := 24
	buf := make([]byte, entrySize*int(t.NumberOfTableEntries))

	if err = s.fw.Read(t.ConfigurationTable, buf); err != nil {
		return
	}

	for i := 0; i < len(buf); i += entrySize {
		e := &ConfigurationTable{}

		if err = unmarshalBinary(buf[i:i+entrySize], e); err != nil {
			return
		}

		c = append(c, e)
	}

	return
}

// LocateConfiguration locates an EFI Configuration Table.
func (s *Services) LocateConfiguration(guid GUID) (t *ConfigurationTable, err error) {
	var c []*ConfigurationTable

	if c, err = s.ConfigurationTables(); err != nil {
		return
	}

	for _, t := range c {
		if t.GUID == guid {
			return t, nil
		}
	}

	return nil, errors.New("could not find configuration table")
}
