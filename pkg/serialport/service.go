// Package serialport provides the scanner transport on top of a real serial device.
package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

// Initialize a new SerialPort client. Zero values fall back to the scanner defaults.
func NewSerialPort(port string, baudrate uint, readTimeout time.Duration) *SerialPort {
	if baudrate == 0 {
		baudrate = DefaultBaudrate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &SerialPort{
		port:        port,
		baudrate:    baudrate,
		readTimeout: readTimeout,
	}
}

// Opener returns a uniden.OpenFunc that opens serial devices with the given settings.
func Opener(baudrate uint, readTimeout time.Duration) uniden.OpenFunc {
	return func(target string) (uniden.Transport, error) {
		p := NewSerialPort(target, baudrate, readTimeout)
		if err := p.Connect(); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Open the connection to the scanner.
func (p *SerialPort) Connect() error {
	options := serial.OpenOptions{
		PortName:              p.port,
		BaudRate:              p.baudrate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: interCharacterTimeout(p.readTimeout),
		MinimumReadSize:       0,
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	p.attach(port)
	log.Info().Str("port", p.port).Uint("baudrate", p.baudrate).Msg("Opened serial port")
	return nil
}

func (p *SerialPort) attach(port io.ReadWriteCloser) {
	p.serialPort = port
	p.reader = bufio.NewReader(port)
}

// The termios timer counts in tenths of a second.
func interCharacterTimeout(d time.Duration) uint {
	ms := uint(d / time.Millisecond)
	if ms < 100 {
		return 100
	}
	return (ms + 99) / 100 * 100
}

// Write sends a frame. Input left over from a reply that timed out is
// discarded first so it cannot be read as the answer to this frame.
func (p *SerialPort) Write(b []byte) (int, error) {
	if p.serialPort == nil {
		return 0, ErrNotConnected
	}
	if p.stale {
		p.discardInput()
	}
	return p.serialPort.Write(b)
}

// discardInput drops buffered bytes and reads until the port goes quiet.
func (p *SerialPort) discardInput() {
	p.stale = false
	dropped := p.reader.Buffered()
	p.reader.Reset(p.serialPort)

	buf := make([]byte, 256)
	for dropped < maxDiscard {
		n, err := p.serialPort.Read(buf)
		dropped += n
		if n == 0 || err != nil {
			break
		}
	}
	if dropped > 0 {
		log.Debug().Str("port", p.port).Int("bytes", dropped).Msg("Discarded stale input")
	}
}

// ReadLine reads up to the next CR or LF and returns the line without it.
// Line endings left over from a previous CRLF are skipped. A read that
// times out before the terminator returns ErrReadTimeout, or ErrTruncatedLine
// when part of a line had arrived.
func (p *SerialPort) ReadLine() ([]byte, error) {
	if p.reader == nil {
		return nil, ErrNotConnected
	}

	var line []byte
	for {
		b, err := p.reader.ReadByte()
		if err != nil {
			p.stale = true
			if errors.Is(err, io.EOF) {
				if len(line) == 0 {
					return nil, ErrReadTimeout
				}
				return line, ErrTruncatedLine
			}
			return line, err
		}

		if b == '\r' || b == '\n' {
			if len(line) == 0 {
				continue
			}
			return line, nil
		}
		line = append(line, b)
	}
}

// Close is safe to call more than once.
func (p *SerialPort) Close() error {
	if p.serialPort == nil {
		return nil
	}
	err := p.serialPort.Close()
	p.serialPort = nil
	p.reader = nil
	p.stale = false
	log.Info().Str("port", p.port).Msg("Closed serial port")
	return err
}
