package rcon

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
)

const (
	packetTypeResponseValue int32 = 0
	packetTypeExecCommand   int32 = 2
	packetTypeAuthResponse  int32 = 2
	packetTypeAuth          int32 = 3

	// id + type + two trailing NULs
	packetHeaderSize = 10
	maxPacketSize    = 1 << 16

	defaultTimeout = 5 * time.Second
)

var (
	ErrAuthFailed      = crerr.New("rcon authentication failed")
	ErrMalformedPacket = crerr.New("rcon malformed packet")
	errRconTransient   = crerr.New("rcon transient failure")
)

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type ClientConfig struct {
	Timeout time.Duration
	Dial    DialFunc
	// Breakers hands out one breaker per server name. Nil disables breaking.
	Breakers *resilience.Registry
	Logger   *logging.Logger
}

// Client speaks the Source RCON protocol. Every Execute call opens its own connection.
type Client struct {
	timeout  time.Duration
	dial     DialFunc
	breakers *resilience.Registry
	logger   *logging.Logger
	nextID   atomic.Int32
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dial := cfg.Dial
	if dial == nil {
		dialer := &net.Dialer{Timeout: timeout}
		dial = dialer.DialContext
	}

	return &Client{
		timeout:  timeout,
		dial:     dial,
		breakers: cfg.Breakers,
		logger:   logger.Named("rcon"),
	}
}

// Execute authenticates against the server and runs the commands in order, returning one response per command.
func (c *Client) Execute(ctx context.Context, server gameserver.Server, commands ...string) ([]string, error) {
	var out []string
	err := c.breakers.For("rcon:"+server.Name).Execute(func() error {
		responses, err := c.execute(ctx, server, commands)
		out = responses
		return err
	}, isRconCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "rcon circuit breaker rejected request", "server", server.Name)
	}
	return out, err
}

func (c *Client) execute(ctx context.Context, server gameserver.Server, commands []string) ([]string, error) {
	conn, err := c.dial(ctx, "tcp", server.Address)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "dial %s", server.Address), errRconTransient)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, crerr.Wrap(err, "set rcon deadline")
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := c.authenticate(conn, server.Password); err != nil {
		return nil, c.contextErr(ctx, err)
	}

	out := make([]string, 0, len(commands))
	for _, command := range commands {
		response, err := c.run(conn, command)
		if err != nil {
			return out, c.contextErr(ctx, crerr.Wrapf(err, "run %q", firstWord(command)))
		}
		out = append(out, response)
	}
	return out, nil
}

func (c *Client) authenticate(conn net.Conn, password string) error {
	id := c.nextID.Add(1)
	if err := writePacket(conn, packet{ID: id, Type: packetTypeAuth, Body: password}); err != nil {
		return crerr.Mark(crerr.Wrap(err, "write auth"), errRconTransient)
	}

	// Servers send an empty response value ahead of the auth result.
	for {
		p, err := readPacket(conn)
		if err != nil {
			return crerr.Mark(crerr.Wrap(err, "read auth response"), errRconTransient)
		}
		if p.Type != packetTypeAuthResponse {
			continue
		}
		if p.ID == -1 || p.ID != id {
			return ErrAuthFailed
		}
		return nil
	}
}

// run sends the command followed by an empty marker packet; the marker's echo ends a multi-packet response.
func (c *Client) run(conn net.Conn, command string) (string, error) {
	id := c.nextID.Add(1)
	marker := c.nextID.Add(1)
	if err := writePacket(conn, packet{ID: id, Type: packetTypeExecCommand, Body: command}); err != nil {
		return "", crerr.Mark(err, errRconTransient)
	}
	if err := writePacket(conn, packet{ID: marker, Type: packetTypeResponseValue}); err != nil {
		return "", crerr.Mark(err, errRconTransient)
	}

	var body strings.Builder
	for {
		p, err := readPacket(conn)
		if err != nil {
			return "", crerr.Mark(err, errRconTransient)
		}
		switch p.ID {
		case id:
			body.WriteString(p.Body)
		case marker:
			return body.String(), nil
		}
	}
}

func (c *Client) contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return crerr.WithSecondaryError(ctxErr, err)
	}
	return err
}

type packet struct {
	ID   int32
	Type int32
	Body string
}

func writePacket(w io.Writer, p packet) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	size := int32(len(p.Body) + packetHeaderSize)
	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(size))
	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(p.ID))
	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(p.Type))
	_, _ = buf.WriteString(p.Body)
	_, _ = buf.Write([]byte{0, 0})

	_, err := w.Write(buf.B)
	return err
}

func readPacket(r io.Reader) (packet, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return packet{}, err
	}
	size := int32(binary.LittleEndian.Uint32(header[:]))
	if size < packetHeaderSize || size > maxPacketSize {
		return packet{}, crerr.Wrapf(ErrMalformedPacket, "size %d", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return packet{}, err
	}
	return packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
		Body: strings.TrimRight(string(payload[8:size-2]), "\x00"),
	}, nil
}

func isRconCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	if crerr.Is(err, context.Canceled) {
		return false
	}
	return crerr.Is(err, errRconTransient) || crerr.Is(err, ErrMalformedPacket)
}

func firstWord(command string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	return word
}
