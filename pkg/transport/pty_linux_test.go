// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPTYLoopback(t *testing.T) {
	link := filepath.Join(t.TempDir(), "ocular0")
	p, err := OpenPTY(link)
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}

	require.Equal(t, link, p.Path())
	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, p.Name(), target)

	host, err := os.OpenFile(link, os.O_RDWR, 0)
	require.NoError(t, err)
	defer host.Close()

	frame := []byte{0xAA, 0xBB, 0x0A, 0x0D, 0x00, 0xFF}
	_, err = host.Write(frame)
	require.NoError(t, err)

	got := make([]byte, 0, len(frame))
	buf := make([]byte, 16)
	for len(got) < len(frame) {
		n, err := p.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, frame, got, "raw mode passes CR/LF and 0xFF untouched")

	_, err = p.Write([]byte{0x01, 0x0A})
	require.NoError(t, err)
	got = got[:0]
	for len(got) < 2 {
		n, err := host.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, []byte{0x01, 0x0A}, got)

	require.NoError(t, p.Close())
	_, err = os.Lstat(link)
	require.True(t, os.IsNotExist(err))
}
