package serialport

import (
	"bufio"
	"errors"
	"io"
	"time"
)

const (
	DefaultBaudrate    uint = 460800
	DefaultReadTimeout      = 100 * time.Millisecond

	maxDiscard = 4096
)

var (
	ErrNotConnected  = errors.New("serial port not connected")
	ErrReadTimeout   = errors.New("read timeout")
	ErrTruncatedLine = errors.New("line truncated by read timeout")
)

// SerialPort is a line oriented serial connection to a scanner.
type SerialPort struct {
	port        string
	baudrate    uint
	readTimeout time.Duration
	serialPort  io.ReadWriteCloser
	reader      *bufio.Reader
	// Set after a failed read; the rest of that reply may still arrive.
	stale       bool
}
