// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Port is a byte-level link to the robot. go.bug.st/serial ports satisfy it
// directly; the WebSocket bridge adapts to it.
//
// Read returns (0, nil) when the read timeout expires with no data.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// Opener opens a port at address and baud.
type Opener func(address string, baud int) (Port, error)

// IsWebSocketAddress reports whether address selects the WebSocket bridge.
func IsWebSocketAddress(address string) bool {
	return strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://")
}

// OpenSerial opens a serial port with 8N1 framing.
func OpenSerial(portName string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// Dialer opens serial ports and WebSocket serial bridges. Its Open method is
// an Opener.
type Dialer struct {
	Username      string
	Password      string
	SkipSSLVerify bool
}

// Open dispatches on the address scheme.
func (d *Dialer) Open(address string, baud int) (Port, error) {
	if IsWebSocketAddress(address) {
		return OpenWebSocket(address, d.Username, d.Password, d.SkipSSLVerify)
	}
	return OpenSerial(address, baud)
}

// OpenWebSocket opens a WebSocket serial bridge with HTTP Basic auth. The
// baud rate is fixed on the bridge side.
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (Port, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketPort(conn), nil
}

// webSocketPort exposes binary WebSocket messages as a byte stream.
//
// A gorilla read deadline that expires corrupts the connection, so messages
// are pumped by a goroutine and Read waits on a channel instead.
type webSocketPort struct {
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}

	mu      sync.Mutex
	buf     []byte
	timeout time.Duration
	readErr error

	closeOnce sync.Once
}

func newWebSocketPort(conn *websocket.Conn) *webSocketPort {
	w := &webSocketPort{
		conn:     conn,
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
		timeout:  time.Second,
	}
	go w.pump()
	return w
}

func (w *webSocketPort) pump() {
	defer close(w.messages)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.messages <- data:
		case <-w.done:
			return
		}
	}
}

func (w *webSocketPort) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	timeout := w.timeout
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-w.messages:
		if !ok {
			w.mu.Lock()
			err := w.readErr
			w.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		n := copy(p, data)
		if n < len(data) {
			w.mu.Lock()
			w.buf = append(w.buf, data[n:]...)
			w.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (w *webSocketPort) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *webSocketPort) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = t
	return nil
}

// ResetInputBuffer drops buffered and queued messages.
func (w *webSocketPort) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()
	for {
		select {
		case _, ok := <-w.messages:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

// Drain is a no-op: WriteMessage returns once the frame is handed to the
// network.
func (w *webSocketPort) Drain() error {
	return nil
}

func (w *webSocketPort) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}
