// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, username, password string) (*WSServer, string) {
	t.Helper()
	srv := NewWSServer(username, password)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWebSocketStream(t *testing.T) {
	srv, url := startServer(t, "lab", "secret")
	ctx := testContext(t)

	accepted := make(chan *WSConn, 1)
	go func() {
		c, err := srv.Accept(ctx)
		if err == nil {
			accepted <- c
		}
	}()

	client, err := DialWebSocket(ctx, url, "lab", "secret", false)
	require.NoError(t, err)
	defer client.Close()

	var device *WSConn
	select {
	case device = <-accepted:
	case <-ctx.Done():
		t.Fatal("no connection accepted")
	}
	defer device.Close()

	// Text frames are skipped
	require.NoError(t, client.conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	_, err = client.Write([]byte{0xAA, 0xBB, 0x01, 0x02})
	require.NoError(t, err)

	// A message larger than the read buffer is returned in pieces
	p := make([]byte, 3)
	n, err := device.Read(p)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB, 0x01}, p[:n])
	n, err = device.Read(p)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02}, p[:n])

	_, err = device.Write([]byte("ok"))
	require.NoError(t, err)
	n, err = client.Read(p)
	require.NoError(t, err)
	require.Equal(t, "ok", string(p[:n]))

	require.NoError(t, client.Close())
	_, err = device.Read(p)
	require.Error(t, err)
	_, err = device.Read(p)
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestWebSocketAuth(t *testing.T) {
	_, url := startServer(t, "lab", "secret")
	ctx := testContext(t)

	_, err := DialWebSocket(ctx, url, "lab", "wrong", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 401")

	_, err = DialWebSocket(ctx, url, "", "", false)
	require.Error(t, err)
}

func TestWebSocketSingleClient(t *testing.T) {
	srv, url := startServer(t, "", "")
	ctx := testContext(t)

	accepted := make(chan *WSConn, 1)
	go func() {
		c, err := srv.Accept(ctx)
		if err == nil {
			accepted <- c
		}
	}()

	first, err := DialWebSocket(ctx, url, "", "", false)
	require.NoError(t, err)
	defer first.Close()
	device := <-accepted

	_, err = DialWebSocket(ctx, url, "", "", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 409")

	device.Close()
	srv.Release()

	go func() {
		c, err := srv.Accept(ctx)
		if err == nil {
			accepted <- c
		}
	}()
	second, err := DialWebSocket(ctx, url, "", "", false)
	require.NoError(t, err)
	defer second.Close()
	(<-accepted).Close()
}

func TestDialRejectsScheme(t *testing.T) {
	_, err := DialWebSocket(context.Background(), "http://localhost:1", "", "", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestAcceptCancelled(t *testing.T) {
	srv := NewWSServer("", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := srv.Accept(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

var _ io.ReadWriteCloser = (*WSConn)(nil)
