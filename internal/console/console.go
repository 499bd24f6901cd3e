// Package console connects the emulated machine's console device to the
// host terminal.
package console

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Key codes after translation.
const (
	KeyBackspace = 0x08
	KeyLineFeed  = 0x0A
	keyReturn    = 0x0D
	keyDelete    = 0x7F
)

const queueSize = 256

// ErrClosed indicates the console input has been exhausted.
var ErrClosed = errors.New("console input closed")

// Console is a byte-oriented terminal: a queue of key presses fed from the
// host input and a writer for machine output.
type Console struct {
	in  io.Reader
	out *bufio.Writer

	keys   chan byte
	done   chan struct{}
	start  sync.Once
	closed bool

	fd       int
	raw      bool
	oldState *term.State
}

// New creates a Console reading keys from in and writing output to out.
// Neither stream is touched until the console is used.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:   in,
		out:  bufio.NewWriter(out),
		keys: make(chan byte, queueSize),
		done: make(chan struct{}),
		fd:   -1,
	}
}

// NewStdio creates a Console on the process's standard streams.
func NewStdio() *Console {
	return New(os.Stdin, os.Stdout)
}

// EnableRaw puts the input terminal into raw mode so key presses arrive
// one at a time without echo. It does nothing when the input is not a
// terminal. Call Restore to undo it.
func (c *Console) EnableRaw() error {
	f, ok := c.in.(*os.File)
	if !ok {
		return nil
	}
	fd := int(f.Fd()) //nolint:gosec // G115: file descriptors fit in int
	if !term.IsTerminal(fd) {
		return nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	c.fd = fd
	c.oldState = oldState
	c.raw = true
	return nil
}

// Restore returns the terminal to the mode it had before EnableRaw and
// flushes pending output.
func (c *Console) Restore() error {
	flushErr := c.out.Flush()
	if c.oldState == nil {
		return flushErr
	}
	err := term.Restore(c.fd, c.oldState)
	c.oldState = nil
	c.raw = false
	if err != nil {
		return err
	}
	return flushErr
}

// Raw reports whether the terminal is in raw mode.
func (c *Console) Raw() bool {
	return c.raw
}

// Feed queues key presses as if they had been typed. Keys that do not fit
// in the queue are dropped.
func (c *Console) Feed(keys []byte) {
	for _, k := range keys {
		select {
		case c.keys <- k:
		default:
			return
		}
	}
}

func (c *Console) startReader() {
	c.start.Do(func() {
		if c.in == nil {
			close(c.done)
			return
		}
		go c.readLoop(c.raw)
	})
}

// readLoop copies host input into the key queue until the input ends.
func (c *Console) readLoop(raw bool) {
	defer close(c.done)

	r := bufio.NewReader(c.in)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		c.keys <- translate(b, raw)
	}
}

// translate maps the codes raw terminals send for Enter and Backspace to
// the ones programs expect.
func translate(b byte, raw bool) byte {
	if !raw {
		return b
	}
	switch b {
	case keyReturn:
		return KeyLineFeed
	case keyDelete:
		return KeyBackspace
	}
	return b
}

// Ready reports whether a key press is waiting.
func (c *Console) Ready() bool {
	c.startReader()
	_ = c.out.Flush()
	return len(c.keys) > 0
}

// TryReadByte returns the next key press without blocking.
func (c *Console) TryReadByte() (byte, bool) {
	c.startReader()
	_ = c.out.Flush()
	select {
	case b := <-c.keys:
		return b, true
	default:
		return 0, false
	}
}

// ReadByte blocks until a key press is available. It returns ErrClosed
// once the input has ended and every queued key has been read.
func (c *Console) ReadByte() (byte, error) {
	c.startReader()
	if err := c.out.Flush(); err != nil {
		return 0, err
	}
	if c.closed {
		select {
		case b := <-c.keys:
			return b, nil
		default:
			return 0, ErrClosed
		}
	}

	select {
	case b := <-c.keys:
		return b, nil
	case <-c.done:
		c.closed = true
		select {
		case b := <-c.keys:
			return b, nil
		default:
			return 0, ErrClosed
		}
	}
}

// WriteByte writes one byte of machine output. In raw mode a line feed is
// written as CR LF since the terminal no longer translates it.
func (c *Console) WriteByte(b byte) error {
	if c.raw && b == KeyLineFeed {
		if err := c.out.WriteByte(keyReturn); err != nil {
			return err
		}
	}
	return c.out.WriteByte(b)
}

// Write writes machine output.
func (c *Console) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := c.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Flush writes any buffered output.
func (c *Console) Flush() error {
	return c.out.Flush()
}
