// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/ocular/pkg/host"
	"github.com/Thermoquad/ocular/pkg/legacy_protocol"
	"github.com/Thermoquad/ocular/pkg/ocular"
)

// linkResult is the protocol independent outcome of one command
type linkResult struct {
	summary string
	failed  bool
	detail  string
	status  *statusView
	elapsed time.Duration

	// version is set by v2 replies carrying a firmware version
	version string
}

// deviceLink runs actions against a controller over either protocol
type deviceLink interface {
	Run(ctx context.Context, a *action, args []string) (*linkResult, error)
	Reset(ctx context.Context) (*linkResult, error)

	// Status returns the most recent status seen, or nil
	Status() *statusView

	Stats() string
	Done() <-chan struct{}
	Close() error
}

var (
	retries    int
	cmdTimeout time.Duration
)

// openLink opens the connection named by the flags and wraps it in the
// client for --protocol
func openLink() (deviceLink, string, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, "", err
	}
	return newLink(conn), connInfo, nil
}

// runWords parses a command line such as "move x 1000" and runs it
func runWords(ctx context.Context, link deviceLink, words []string) (*linkResult, error) {
	if len(words) > 0 && strings.EqualFold(words[0], "reset") {
		return link.Reset(ctx)
	}
	a, args, err := lookupAction(words)
	if err != nil {
		return nil, err
	}
	return link.Run(ctx, a, args)
}

func newLink(conn Connection) deviceLink {
	opts := host.Options{Timeout: cmdTimeout, Retries: retries}
	if isLegacy() {
		return &legacyLink{conn: conn, client: host.NewLegacyClient(conn, opts, acceptZeroChecksum)}
	}
	return &v2Link{conn: conn, client: host.NewClient(conn, opts)}
}

type v2Link struct {
	conn   Connection
	client *host.Client
}

func (l *v2Link) Run(ctx context.Context, a *action, args []string) (*linkResult, error) {
	if a.v2 == nil {
		return nil, fmt.Errorf("%s: %w", a.name, errNotInProtocol)
	}
	cmd, err := a.v2(args)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := l.client.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	res := v2Result(resp, time.Since(start))
	if cmd.Type == ocular.CmdGetVersion && !res.failed {
		res.version = fmt.Sprintf("%d.%d", resp.Reserved[0], resp.Reserved[1])
	}
	return res, nil
}

func (l *v2Link) Reset(ctx context.Context) (*linkResult, error) {
	return l.send(ctx, func() (*ocular.ResponsePacket, error) { return l.client.Reset(ctx) })
}

func (l *v2Link) send(ctx context.Context, fn func() (*ocular.ResponsePacket, error)) (*linkResult, error) {
	start := time.Now()
	resp, err := fn()
	if err != nil {
		return nil, err
	}
	return v2Result(resp, time.Since(start)), nil
}

func v2Result(resp *ocular.ResponsePacket, elapsed time.Duration) *linkResult {
	st := v2Status(resp)
	summary := ocular.FormatStatus(resp.Status)
	if resp.Error != ocular.ErrNone {
		summary += " " + ocular.FormatError(resp.Error)
	}
	detail := ocular.FormatResponse(resp)
	if resp.Reserved != [3]uint8{} {
		detail += fmt.Sprintf("  Data: % X\n", resp.Reserved[:])
	}
	return &linkResult{summary: summary, failed: st.failed, detail: detail, status: st, elapsed: elapsed}
}

func (l *v2Link) Status() *statusView {
	if resp := l.client.Last(); resp != nil {
		return v2Status(resp)
	}
	return nil
}

func (l *v2Link) Stats() string         { return l.client.Stats() }
func (l *v2Link) Done() <-chan struct{} { return l.client.Done() }
func (l *v2Link) Close() error          { return l.conn.Close() }

type legacyLink struct {
	conn   Connection
	client *host.LegacyClient
}

func (l *legacyLink) Run(ctx context.Context, a *action, args []string) (*linkResult, error) {
	if a.legacy == nil {
		return nil, fmt.Errorf("%s: %w", a.name, errNotInProtocol)
	}
	cmd, err := a.legacy(args)
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		resp := l.client.Last()
		if resp == nil {
			return nil, fmt.Errorf("no status received yet")
		}
		return legacyResult(resp, 0), nil
	}
	return l.send(func() (*legacy_protocol.Response, error) { return l.client.Send(ctx, cmd) })
}

func (l *legacyLink) Reset(ctx context.Context) (*linkResult, error) {
	return l.send(func() (*legacy_protocol.Response, error) { return l.client.Reset(ctx) })
}

func (l *legacyLink) send(fn func() (*legacy_protocol.Response, error)) (*linkResult, error) {
	start := time.Now()
	resp, err := fn()
	if err != nil {
		return nil, err
	}
	return legacyResult(resp, time.Since(start)), nil
}

func legacyResult(resp *legacy_protocol.Response, elapsed time.Duration) *linkResult {
	st := legacyStatus(resp)
	return &linkResult{
		summary: legacy_protocol.FormatStatus(resp.Status),
		failed:  st.failed,
		detail:  legacy_protocol.FormatResponse(resp),
		status:  st,
		elapsed: elapsed,
	}
}

func (l *legacyLink) Status() *statusView {
	if resp := l.client.Last(); resp != nil {
		return legacyStatus(resp)
	}
	return nil
}

func (l *legacyLink) Stats() string {
	return fmt.Sprintf("Bytes dropped while resynchronizing: %d\n", l.client.Dropped())
}

func (l *legacyLink) Done() <-chan struct{} { return l.client.Done() }
func (l *legacyLink) Close() error          { return l.conn.Close() }
