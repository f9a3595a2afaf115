package rcon

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
)

// fakeServer answers like a Source dedicated server: an empty value before the auth result,
// a command reply split over two packets, and the marker echo.
type fakeServer struct {
	listener net.Listener
	password string
	received chan string
}

func startFakeServer(t *testing.T, password string) *fakeServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &fakeServer{listener: listener, password: password, received: make(chan string, 16)}
	t.Cleanup(func() { _ = listener.Close() })
	go srv.serve()
	return srv
}

func (s *fakeServer) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	auth, err := readPacket(conn)
	if err != nil {
		return
	}
	_ = writePacket(conn, packet{ID: auth.ID, Type: packetTypeResponseValue})
	authID := auth.ID
	if auth.Body != s.password {
		authID = -1
	}
	_ = writePacket(conn, packet{ID: authID, Type: packetTypeAuthResponse})
	if authID == -1 {
		return
	}

	for {
		p, err := readPacket(conn)
		if err != nil {
			return
		}
		switch p.Type {
		case packetTypeExecCommand:
			s.received <- p.Body
			reply := "ok " + p.Body
			if p.Body == "status" {
				reply = "hostname: NA East #1\nplayers : 3 humans, 0 bots, 16 max\n"
			}
			half := len(reply) / 2
			_ = writePacket(conn, packet{ID: p.ID, Type: packetTypeResponseValue, Body: reply[:half]})
			_ = writePacket(conn, packet{ID: p.ID, Type: packetTypeResponseValue, Body: reply[half:]})
		case packetTypeResponseValue:
			_ = writePacket(conn, packet{ID: p.ID, Type: packetTypeResponseValue})
			_ = writePacket(conn, packet{ID: p.ID, Type: packetTypeResponseValue, Body: "\x00\x01\x00\x00"})
		}
	}
}

func TestClient_Execute(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t, "secret")
	client := NewClient(ClientConfig{Timeout: 2 * time.Second})
	server := gameserver.Server{Name: "NA East #1", Address: srv.addr(), Password: "secret"}

	responses, err := client.Execute(t.Context(), server, "status", "map 8v8_london")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected two responses, got %d", len(responses))
	}
	if !strings.Contains(responses[0], "players : 3 humans") {
		t.Fatalf("status reply must be reassembled, got %q", responses[0])
	}
	if responses[1] != "ok map 8v8_london" {
		t.Fatalf("unexpected map reply %q", responses[1])
	}
	if got := <-srv.received; got != "status" {
		t.Fatalf("unexpected first command %q", got)
	}
}

func TestClient_Execute_AuthFailed(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t, "secret")
	client := NewClient(ClientConfig{Timeout: 2 * time.Second})

	_, err := client.Execute(t.Context(), gameserver.Server{Name: "x", Address: srv.addr(), Password: "wrong"}, "status")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestClient_Execute_OpensBreakerOnDialFailures(t *testing.T) {
	t.Parallel()

	dials := 0
	client := NewClient(ClientConfig{
		Timeout: time.Second,
		Dial: func(context.Context, string, string) (net.Conn, error) {
			dials++
			return nil, errors.New("connection refused")
		},
		Breakers: resilience.NewRegistry(resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		}),
	})
	server := gameserver.Server{Name: "down", Address: "10.0.0.1:27015"}

	for i := 0; i < 2; i++ {
		if _, err := client.Execute(t.Context(), server, "status"); err == nil {
			t.Fatalf("attempt %d: expected dial error", i)
		}
	}
	if _, err := client.Execute(t.Context(), server, "status"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if dials != 2 {
		t.Fatalf("open circuit must not dial, got %d dials", dials)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := writePacket(&buf, packet{ID: 7, Type: packetTypeExecCommand, Body: "exec 8v8"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 4+packetHeaderSize+len("exec 8v8") {
		t.Fatalf("unexpected encoded length %d", buf.Len())
	}
	got, err := readPacket(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != 7 || got.Type != packetTypeExecCommand || got.Body != "exec 8v8" {
		t.Fatalf("unexpected packet %+v", got)
	}
}

func TestReadPacket_RejectsBadSize(t *testing.T) {
	t.Parallel()

	raw := []byte{3, 0, 0, 0, 1, 2, 3}
	if _, err := readPacket(bytes.NewReader(raw)); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}
