package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey/Redis-compatible server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

func (c ValkeyConfig) withDefaults() ValkeyConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	return c
}

// ValkeyProvider implements Provider over RESP2, one short-lived connection per command.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider validates cfg and pings the server so bad credentials fail fast.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	p := &ValkeyProvider{cfg: cfg.withDefaults()}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DialTimeout)
	defer cancel()
	reply, err := p.do(ctx, "PING")
	if err != nil {
		return nil, fmt.Errorf("valkey ping %s: %w", cfg.Addr, err)
	}
	if reply.kind != kindStatus || reply.text() != "PONG" {
		return nil, fmt.Errorf("unexpected PING response: %q", reply.data)
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch reply.kind {
	case kindNil:
		return nil, ErrCacheMiss
	case kindBulk:
		return reply.data, nil
	default:
		return nil, fmt.Errorf("unexpected GET reply type %q", reply.kind)
	}
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	reply, err := p.do(ctx, setArgs(key, value, ttl)...)
	if err != nil {
		return err
	}
	if reply.kind != kindStatus || reply.text() != "OK" {
		return fmt.Errorf("unexpected SET response: %q", reply.data)
	}
	return nil
}

// SetNX stores the value only if the key does not exist.
func (p *ValkeyProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	reply, err := p.do(ctx, append(setArgs(key, value, ttl), "NX")...)
	if err != nil {
		return false, err
	}
	switch reply.kind {
	case kindStatus:
		return true, nil
	case kindNil:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected SET NX reply type %q", reply.kind)
	}
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close is a no-op; connections are not pooled.
func (p *ValkeyProvider) Close() error { return nil }

func setArgs(key string, value []byte, ttl time.Duration) []any {
	args := []any{"SET", key, value}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	return args
}

// do runs one command, retrying transient network failures with exponential backoff.
func (p *ValkeyProvider) do(ctx context.Context, args ...any) (respValue, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return respValue{}, ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}
		if err := ctx.Err(); err != nil {
			return respValue{}, err
		}
		reply, err := p.once(ctx, args)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return respValue{}, lastErr
}

func (p *ValkeyProvider) once(ctx context.Context, args []any) (respValue, error) {
	conn, err := p.open(ctx)
	if err != nil {
		return respValue{}, err
	}
	defer conn.Close()
	return conn.roundTrip(args...)
}

// open dials and authenticates a session.
func (p *ValkeyProvider) open(ctx context.Context) (*respConn, error) {
	dialer := net.Dialer{Timeout: dialTimeout(ctx, p.cfg.DialTimeout)}
	var (
		raw net.Conn
		err error
	)
	if p.cfg.TLS {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: hostOnly(p.cfg.Addr)}
		raw, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, tlsCfg)
	} else {
		raw, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	conn := &respConn{
		Conn:         raw,
		r:            bufio.NewReader(raw),
		w:            bufio.NewWriter(raw),
		readTimeout:  p.cfg.ReadTimeout,
		writeTimeout: p.cfg.WriteTimeout,
	}

	if p.cfg.Password != "" {
		auth := []any{"AUTH", p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []any{"AUTH", p.cfg.Username, p.cfg.Password}
		}
		if err := conn.expectOK(auth...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("auth failed: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if err := conn.expectOK("SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("select db %d: %w", p.cfg.DB, err)
		}
	}
	return conn, nil
}

type respKind string

const (
	kindStatus  respKind = "+"
	kindBulk    respKind = "$"
	kindInteger respKind = ":"
	kindNil     respKind = "nil"
)

type respValue struct {
	kind respKind
	data []byte
}

func (v respValue) text() string { return string(v.data) }

// ServerError is an error reply (-ERR ...) returned by the server.
type ServerError string

func (e ServerError) Error() string { return string(e) }

type respConn struct {
	net.Conn
	r            *bufio.Reader
	w            *bufio.Writer
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *respConn) expectOK(args ...any) error {
	reply, err := c.roundTrip(args...)
	if err != nil {
		return err
	}
	if reply.kind != kindStatus || !strings.EqualFold(reply.text(), "OK") {
		return fmt.Errorf("unexpected reply %q", reply.data)
	}
	return nil
}

func (c *respConn) roundTrip(args ...any) (respValue, error) {
	if err := c.send(args); err != nil {
		return respValue{}, err
	}
	return c.receive()
}

// send encodes args as a RESP array of bulk strings.
func (c *respConn) send(args []any) error {
	if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, arg := range args {
		var part []byte
		switch v := arg.(type) {
		case string:
			part = []byte(v)
		case []byte:
			part = v
		default:
			return fmt.Errorf("unsupported RESP argument %T", arg)
		}
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(part)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, part...)
		buf = append(buf, '\r', '\n')
	}
	if _, err := c.w.Write(buf); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *respConn) receive() (respValue, error) {
	if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return respValue{}, err
	}
	line, err := c.line()
	if err != nil {
		return respValue{}, err
	}
	if len(line) == 0 {
		return respValue{}, errors.New("empty RESP reply")
	}
	body := line[1:]
	switch line[0] {
	case '+':
		return respValue{kind: kindStatus, data: body}, nil
	case '-':
		return respValue{}, ServerError(body)
	case ':':
		return respValue{kind: kindInteger, data: body}, nil
	case '_':
		return respValue{kind: kindNil}, nil
	case '$':
		size, err := strconv.Atoi(string(body))
		if err != nil {
			return respValue{}, fmt.Errorf("invalid bulk length %q: %w", body, err)
		}
		if size < 0 {
			return respValue{kind: kindNil}, nil
		}
		payload := make([]byte, size+2)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return respValue{}, err
		}
		if payload[size] != '\r' || payload[size+1] != '\n' {
			return respValue{}, errors.New("invalid bulk termination")
		}
		return respValue{kind: kindBulk, data: payload[:size]}, nil
	default:
		return respValue{}, fmt.Errorf("unexpected RESP prefix %q", line[0])
	}
}

func (c *respConn) line() ([]byte, error) {
	raw, err := c.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	raw = raw[:len(raw)-1]
	if n := len(raw); n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	return raw, nil
}

func dialTimeout(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return time.Millisecond
		}
		if remaining < d {
			return remaining
		}
	}
	return d
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 25 * time.Millisecond
}

func retryable(err error) bool {
	var serverErr ServerError
	if errors.As(err, &serverErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
