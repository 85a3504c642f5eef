package email

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, Config) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)
	return ln, Config{Host: host, Port: portNum, From: "Barix Billing <billing@barix.test>"}
}

func TestSMTPSendGivesUpAtDeadline(t *testing.T) {
	ln, cfg := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		// Accept and never greet.
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- NewSMTP(cfg).Send(ctx, Message{To: []string{"ann@example.com"}, Subject: "Invoice", HTML: "<p>hi</p>"})
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "unexpected error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("smtp send ignored the context deadline")
	}
}

func TestSMTPSendStopsOnCancel(t *testing.T) {
	ln, cfg := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(3 * time.Second)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	err := NewSMTP(cfg).Send(ctx, Message{To: []string{"ann@example.com"}, Subject: "Invoice", HTML: "<p>hi</p>"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSendDeliversMessage(t *testing.T) {
	ln, cfg := listen(t)
	received := make(chan string, 1)
	go serveOneMessage(ln, received)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := NewSMTP(cfg).Send(ctx, Message{To: []string{"ann@example.com"}, Subject: "Invoice INV-1", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	select {
	case body := <-received:
		assert.Contains(t, body, "To: ann@example.com")
		assert.Contains(t, body, "<p>hi</p>")
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

// serveOneMessage speaks just enough SMTP to accept a single message.
func serveOneMessage(ln net.Listener, received chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 barix.test ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.Fields(line + " x")[0])
		switch verb {
		case "EHLO", "HELO", "MAIL", "RCPT":
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			received <- string(body)
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}
