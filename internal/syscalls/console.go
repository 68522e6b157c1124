package syscalls

import (
	"bufio"
	"io"
	"sync"
)

// Console is the character device behind stdin, stdout, and stderr.
// It is safe for concurrent use; each call holds the device for its
// whole transfer so output from different processes is not interleaved
// mid-buffer.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole returns a console reading from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) write(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(buf)
}

// read fills buf one character at a time and stops early at end of input.
func (c *Console) read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range buf {
		ch, err := c.in.ReadByte()
		if err == io.EOF {
			return i, nil
		}
		if err != nil {
			return i, err
		}
		buf[i] = ch
	}
	return len(buf), nil
}
