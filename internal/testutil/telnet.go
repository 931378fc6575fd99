package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// defaultIOTimeout bounds each TelnetClient read and write.
const defaultIOTimeout = 5 * time.Second

// TelnetClient is a line-oriented client for roll server integration tests.
type TelnetClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

// NewTelnetClient dials addr and closes the connection when the test ends.
//
// Precondition: addr must be a listening "host:port".
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, defaultIOTimeout)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &TelnetClient{conn: conn, reader: bufio.NewReader(conn), t: t}
}

// telnetIAC starts a three-byte option negotiation, which ReadUntil drops.
const telnetIAC = 255

// ReadUntil reads until the accumulated output ends with substr and returns
// everything read so far, including the match.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns output containing substr, or fails the test on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var buf strings.Builder
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, buf.String(), err)
		}
		if b == telnetIAC {
			if _, err := c.reader.Discard(2); err != nil {
				c.t.Fatalf("reading negotiation: %v", err)
			}
			continue
		}
		buf.WriteByte(b)
		if strings.HasSuffix(buf.String(), substr) {
			return buf.String()
		}
	}
}

// Prompt waits for the server's "> " prompt and returns the output before it
// with line endings normalized to "\n" and surrounding whitespace trimmed.
func (c *TelnetClient) Prompt() string {
	c.t.Helper()
	out := c.ReadUntil("> ", defaultIOTimeout)
	out = strings.TrimSuffix(out, "> ")
	out = strings.ReplaceAll(out, "\r\n", "\n")
	return strings.TrimSpace(out)
}

// Command sends line and returns the response printed before the next prompt.
func (c *TelnetClient) Command(line string) string {
	c.t.Helper()
	c.Send(line)
	return c.Prompt()
}

// Send writes text followed by \r\n.
//
// Precondition: text should not contain trailing newline characters.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(defaultIOTimeout))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
