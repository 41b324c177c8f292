package util

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestBidirectionalCopy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) // echo
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	input := bytes.NewBufferString("hello world\n")
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// input → conn → echo → output.  Exhausting input half-closes the
	// write side; the echo server then sees EOF and hangs up.
	if err := BidirectionalCopy(ctx, conn, input, output); err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}

	if got := output.String(); got != "hello world\n" {
		t.Errorf("output = %q, want %q", got, "hello world\n")
	}
}

func TestBidirectionalCopy_ServerHangsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("bye\n")) //nolint:errcheck
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	// A reader that never returns: only the server hang-up can end the copy.
	pr, pw := io.Pipe()
	defer pw.Close()
	output := &bytes.Buffer{}

	done := make(chan error, 1)
	go func() { done <- BidirectionalCopy(context.Background(), conn, pr, output) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BidirectionalCopy: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("copy did not end after the server closed")
	}
	if output.String() != "bye\n" {
		t.Errorf("output = %q", output.String())
	}
}
