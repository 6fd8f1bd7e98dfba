package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakePrinter accepts connections and reports what each one wrote.
func fakePrinter(t *testing.T) (Address, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				data, _ := io.ReadAll(c)
				received <- data
			}(conn)
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return Address{Host: host, Port: p}, received
}

func closedAddress(t *testing.T) Address {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()
	return Address{Host: "127.0.0.1", Port: addr.Port}
}

func TestLinkSend(t *testing.T) {
	addr, received := fakePrinter(t)
	link := NewLink(LinkConfig{DisableLogo: true}, zap.NewNop())

	payload := NewDocument(32).Text("hello").Cut().Bytes()
	if err := link.Send(context.Background(), addr, payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-received:
		if !bytes.Equal(got, payload) {
			t.Fatalf("printer got % x, want % x", got, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestLinkPing(t *testing.T) {
	addr, received := fakePrinter(t)
	link := NewLink(LinkConfig{DisableLogo: true}, zap.NewNop())

	if err := link.Ping(context.Background(), addr); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	select {
	case got := <-received:
		if !bytes.Equal(got, []byte{ESC, '@'}) {
			t.Fatalf("ping wrote % x", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestLinkUnreachable(t *testing.T) {
	link := NewLink(LinkConfig{DisableLogo: true, PrintTimeout: time.Second}, zap.NewNop())

	err := link.Send(context.Background(), closedAddress(t), []byte("x"))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Send() error = %v, want ErrUnreachable", err)
	}
	if IsTimeout(err) {
		t.Fatal("refused connection classified as timeout")
	}
	var linkErr *LinkError
	if !errors.As(err, &linkErr) || linkErr.Op != "send" {
		t.Fatalf("error %v is not a send LinkError", err)
	}
}

func TestLinkNoAddress(t *testing.T) {
	link := NewLink(LinkConfig{DisableLogo: true}, zap.NewNop())
	err := link.Send(context.Background(), Address{}, []byte("x"))
	if !errors.Is(err, ErrNoAddress) {
		t.Fatalf("Send() error = %v, want ErrNoAddress", err)
	}
}

func TestLinkContextDeadline(t *testing.T) {
	link := NewLink(LinkConfig{DisableLogo: true}, zap.NewNop())
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	// TEST-NET-1 is never routed; the expired context fails the dial first.
	err := link.Send(ctx, Address{Host: "192.0.2.1", Port: 9100}, []byte("x"))
	if !IsTimeout(err) {
		t.Fatalf("Send() error = %v, want timeout", err)
	}
}

func TestLinkLoadsLogo(t *testing.T) {
	link := NewLink(LinkConfig{}, zap.NewNop())
	if link.Logo() == nil {
		t.Fatal("bundled logo not loaded")
	}

	link = NewLink(LinkConfig{LogoPath: "/does/not/exist.png"}, zap.NewNop())
	if link.Logo() != nil {
		t.Fatal("expected no logo when the file is missing")
	}
}

func TestAddressString(t *testing.T) {
	if got := (Address{Host: "192.168.1.50"}).String(); got != "192.168.1.50:9100" {
		t.Fatalf("String() = %q", got)
	}
	if !(Address{Port: 9100}).IsZero() {
		t.Fatal("address without host should be zero")
	}
}

func TestNewTransportFromConfig(t *testing.T) {
	tr, err := NewTransportFromConfig("none", LinkConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Send(context.Background(), Address{Host: "x"}, []byte("x")); err != nil {
		t.Fatalf("null transport Send() error = %v", err)
	}
	if tr.Logo() != nil {
		t.Fatal("null transport has a logo")
	}

	if _, err := NewTransportFromConfig("usb", LinkConfig{}, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
