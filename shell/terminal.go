// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package shell implements a terminal console handler for user defined
// commands.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/term"
)

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   (*Interface).Help,
	})
}

// Interface represents a terminal interface.
type Interface struct {
	// Banner represents the welcome message
	Banner string

	// ReadWriter represents the terminal connection
	ReadWriter io.ReadWriter

	// VT100 enables a colored prompt
	VT100 bool
}

// Exec runs the registered command matching the argument line.
func (iface *Interface) Exec(line string) (res string, err error) {
	cmd, arg := match(line)

	if cmd == nil {
		return "", errors.New("unknown command, type `help`")
	}

	return cmd.Fn(iface, arg)
}

func (iface *Interface) handleLine(line string, w io.Writer) (err error) {
	res, err := iface.Exec(line)

	if len(res) > 0 {
		fmt.Fprintln(w, res)
	}

	return
}

func (iface *Interface) readLine(t *term.Terminal, w io.Writer) error {
	s, err := t.ReadLine()

	if err == io.EOF {
		return err
	}

	if err != nil {
		log.Printf("readline error, %v", err)
		return nil
	}

	if len(s) == 0 {
		return nil
	}

	if err = iface.handleLine(s, w); err != nil {
		if err == io.EOF {
			return err
		}

		fmt.Fprintf(w, "command error, %v\n", err)
	}

	return nil
}

// Start handles registered commands over the interface ReadWriter, until
// the connection is closed or a command returns [io.EOF].
func (iface *Interface) Start() {
	var w io.Writer

	t := term.NewTerminal(iface.ReadWriter, "> ")
	w = iface.ReadWriter

	if iface.VT100 {
		t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))
		w = t
	}

	help, _ := iface.Help(nil)

	fmt.Fprintf(t, "\n%s\n\n", iface.Banner)
	fmt.Fprintf(t, "%s\n", help)

	for {
		if err := iface.readLine(t, w); err != nil {
			return
		}
	}
}
