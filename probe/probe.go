// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package probe implements the pre-boot flow, enumerating physical memory and
// locating the boot volume through UEFI Boot Services.
//
// The flow never panics, each step outcome is collected in a [Report] which
// can be printed on the UEFI console.
package probe

import (
	"fmt"
	"log"

	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/usbarmory/go-preboot/uefi"
)

// Step names
const (
	MemoryMap   = "memory map"
	Volumes     = "volumes"
	LoadedImage = "loaded image"
	FileSystem  = "file system"
	OpenVolume  = "open volume"
)

// Config represents the boot flow buffer sizing.
type Config struct {
	// MemoryMapSize is the initial memory map buffer size in bytes.
	MemoryMapSize int
	// HandleCapacity is the initial number of handle buffer entries.
	HandleCapacity int
}

// DefaultConfig returns the default boot flow configuration.
func DefaultConfig() Config {
	return Config{
		MemoryMapSize:  4 * uefi.PageSize,
		HandleCapacity: 1024,
	}
}

// Step represents the outcome of a boot flow step.
type Step struct {
	Name   string
	Detail string
	Err    error
}

// Report represents the boot flow outcome.
type Report struct {
	Steps []*Step

	MemoryMap  *uefi.MemoryMap
	Volumes    []uefi.Handle
	Image      *uefi.LoadedImage
	FileSystem *uefi.SimpleFileSystem
	Root       *uefi.File
}

func (r *Report) step(name string, err error, format string, a ...any) error {
	s := &Step{
		Name: name,
		Err:  err,
	}

	if err != nil {
		log.Printf("%s failed, %v", name, err)
	} else {
		s.Detail = fmt.Sprintf(format, a...)
		log.Printf("%s: %s", name, s.Detail)
	}

	r.Steps = append(r.Steps, s)

	return err
}

// Err returns the first step failure, if any.
func (r *Report) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s, %w", s.Name, s.Err)
		}
	}

	return nil
}

// Success reports whether the boot volume root has been opened.
func (r *Report) Success() bool {
	return r.Err() == nil && r.Root != nil
}

// E820 returns the memory map converted to x86 E820 entries.
func (r *Report) E820() (entries []bzimage.E820Entry) {
	if r.MemoryMap == nil {
		return
	}

	for _, d := range r.MemoryMap.Descriptors() {
		entries = append(entries, d.E820())
	}

	return
}

// Lines returns the report as human readable diagnostic lines.
func (r *Report) Lines() (lines []string) {
	for _, s := range r.Steps {
		if s.Err != nil {
			lines = append(lines, fmt.Sprintf("%-12s failed, %v", s.Name, s.Err))
		} else {
			lines = append(lines, fmt.Sprintf("%-12s %s", s.Name, s.Detail))
		}
	}

	if r.Success() {
		lines = append(lines, "boot volume located")
	} else {
		lines = append(lines, "boot volume not located")
	}

	return
}

// Print outputs the report on the argument console, one line per string.
func (r *Report) Print(c *uefi.Console) (err error) {
	for _, line := range r.Lines() {
		if err = c.OutputString(line); err != nil {
			return
		}

		if err = c.OutputString("\r\n"); err != nil {
			return
		}
	}

	return
}

func conventionalMemory(m *uefi.MemoryMap) (size uint64) {
	for _, d := range m.Descriptors() {
		if d.Type == uefi.EfiConventionalMemory {
			size += d.NumberOfPages * uefi.PageSize
		}
	}

	return
}

// Run executes the boot flow: the memory map is read, the boot volume is
// located through the device the running image was loaded from and its root
// directory is opened. The flow stops at the first failing step, the
// returned error matches [Report.Err].
func Run(s *uefi.Services, conf Config) (r *Report, err error) {
	var memoryMap *uefi.MemoryMap
	var volumes *uefi.HandleSet
	var image *uefi.LoadedImage
	var sfs *uefi.SimpleFileSystem
	var root *uefi.File

	r = &Report{}

	if err = s.Console.Reset(false); err != nil {
		log.Printf("could not reset console, %v", err)
	}

	memoryMap, err = s.Boot.NegotiateMemoryMap(conf.MemoryMapSize)

	if err == nil && memoryMap.Len() < 2 {
		err = fmt.Errorf("memory map too short (%d descriptors)", memoryMap.Len())
	}

	if err != nil {
		return r, r.step(MemoryMap, err, "")
	}

	r.MemoryMap = memoryMap
	r.step(MemoryMap, nil, "%d descriptors (stride %d, key %#x), %d MiB conventional",
		memoryMap.Len(), memoryMap.DescriptorSize(), memoryMap.Key(), conventionalMemory(memoryMap)>>20)

	if volumes, err = s.Boot.NegotiateHandles(uefi.ByProtocol, uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID, conf.HandleCapacity); err != nil {
		return r, r.step(Volumes, err, "")
	}

	r.Volumes = volumes.Handles()
	r.step(Volumes, nil, "%d file system handle(s)", volumes.Len())

	if image, err = s.Boot.LoadedImage(s.ImageHandle()); err != nil {
		return r, r.step(LoadedImage, err, "")
	}

	r.Image = image
	r.step(LoadedImage, nil, "base %#x size %#x device %#x", image.ImageBase, image.ImageSize, image.DeviceHandle)

	if sfs, err = s.Boot.SimpleFileSystem(image.DeviceHandle); err != nil {
		return r, r.step(FileSystem, err, "")
	}

	r.FileSystem = sfs
	r.step(FileSystem, nil, "revision %#x", sfs.Revision)

	if root, err = sfs.OpenVolume(); err != nil {
		return r, r.step(OpenVolume, err, "")
	}

	r.Root = root
	r.step(OpenVolume, nil, "root %s at %#x (revision %#x)", root.Name(), root.Address(), root.Revision)

	return r, nil
}
