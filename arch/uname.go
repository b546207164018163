//go:build linux

package cibox_arch

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Uname object
type Uname struct {
	Nodename string
	Release  string
	Sysname  string
	Version  string
	Machine  string
}

// NewUname instance
func NewUname() *Uname {
	return new(Uname)
}

// a2s converts a null-terminated buffer to a string for syscalls
func (un *Uname) a2s(data [65]byte) string {
	str := string(data[:])
	if i := strings.Index(str, "\x00"); i != -1 {
		str = str[:i]
	}
	return str
}

// Init Uname
func (un *Uname) Init() error {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return fmt.Errorf("Error init uname: %v", err)
	}

	un.Nodename = un.a2s(uname.Nodename)
	un.Release = un.a2s(uname.Release)
	un.Sysname = un.a2s(uname.Sysname)
	un.Version = un.a2s(uname.Version)
	un.Machine = un.a2s(uname.Machine)

	return nil
}

// HostMachine returns the raw machine name of the host, e.g. "x86_64".
func HostMachine() string {
	un := NewUname()
	if err := un.Init(); err != nil {
		panic(err)
	}
	return un.Machine
}
