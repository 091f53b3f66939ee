// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package transport

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// PTY is the master side of a pseudo-terminal. Hosts open the slave path
// (or the symlink to it) as if it were the controller's serial port.
type PTY struct {
	master *os.File
	slave  *os.File
	name   string
	link   string
}

// OpenPTY allocates a raw-mode pseudo-terminal. When link is not empty a
// symlink to the slave device is created there, replacing any old one.
func OpenPTY(link string) (*PTY, error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("pty: open /dev/ptmx: %w", err)
	}

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pty: unlock: %w", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pty: get number: %w", err)
	}
	name := fmt.Sprintf("/dev/pts/%d", n)

	// The slave stays open so the master does not see EIO between host sessions
	sfd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pty: open %s: %w", name, err)
	}
	if err := makeRaw(sfd); err != nil {
		unix.Close(sfd)
		unix.Close(fd)
		return nil, err
	}

	p := &PTY{
		master: os.NewFile(uintptr(fd), "/dev/ptmx"),
		slave:  os.NewFile(uintptr(sfd), name),
		name:   name,
	}

	if link != "" {
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			p.Close()
			return nil, fmt.Errorf("pty: replace %s: %w", link, err)
		}
		if err := os.Symlink(name, link); err != nil {
			p.Close()
			return nil, fmt.Errorf("pty: link %s: %w", link, err)
		}
		p.link = link
	}

	glog.Infof("transport: pty %s ready", p.Path())
	return p, nil
}

func makeRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("pty: get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("pty: set termios: %w", err)
	}
	return nil
}

// Name returns the slave device path
func (p *PTY) Name() string {
	return p.name
}

// Path returns the path hosts should open
func (p *PTY) Path() string {
	if p.link != "" {
		return p.link
	}
	return p.name
}

func (p *PTY) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

func (p *PTY) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

// Close releases both sides and removes the symlink
func (p *PTY) Close() error {
	if p.link != "" {
		os.Remove(p.link)
	}
	p.slave.Close()
	return p.master.Close()
}
