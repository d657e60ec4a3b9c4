// Package scannersim emulates a Uniden scanner behind the uniden.Transport interface.
// It is used by tests and by the CLI when no hardware is attached.
package scannersim

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
	"github.com/rs/zerolog/log"
)

var (
	ErrTimeout = errors.New("read timeout")
	ErrClosed  = errors.New("port closed")
)

// Initialize a scanner with factory-like defaults.
func New() *Scanner {
	return &Scanner{
		model:      "BCD396XT",
		version:    "Version 1.01.03",
		volume:     8,
		squelch:    2,
		chargeTime: 10,
		screen: []string{
			"011000", "", "", "SCAN MODE", "", "Fire Dispatch", "",
			"154.4300 NFM", "", "", "", "", "", "", "", "1", "1", "0", "0", "0", "0", "5", "GREEN", "1",
		},
		channels: map[int][]string{
			1: {"1", "Fire Dispatch", "01544300", "NFM", "0", "2", "0", "0", "0", "0", "0", "0"},
			2: {"2", "EMS Tac", "01552050", "NFM", "0", "2", "0", "0", "0", "0", "0", "0"},
			3: {"3", "Marine 16", "01568000", "FM", "0", "2", "0", "0", "0", "0", "0", "0"},
		},
	}
}

// Open hands out the emulator as a transport. The target is only logged.
func (s *Scanner) Open(target string) (uniden.Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.closed = false
	s.buf = nil
	s.pending = nil
	log.Debug().Str("target", target).Msg("Simulated scanner opened")
	return s, nil
}

// Write accepts one or more CR terminated frames and queues a reply for each.
func (s *Scanner) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	s.buf = append(s.buf, p...)
	for {
		idx := bytes.IndexByte(s.buf, '\r')
		if idx < 0 {
			break
		}
		frame := string(s.buf[:idx])
		s.buf = s.buf[idx+1:]
		s.received = append(s.received, frame)
		if reply, ok := s.respond(frame); ok {
			s.pending = append(s.pending, reply+"\r")
		}
	}
	return len(p), nil
}

// ReadLine returns the oldest queued reply, or ErrTimeout when there is none.
func (s *Scanner) ReadLine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if len(s.pending) == 0 {
		return nil, ErrTimeout
	}
	line := s.pending[0]
	s.pending = s.pending[1:]
	return []byte(line), nil
}

func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCount++
	return nil
}

func (s *Scanner) respond(frame string) (string, bool) {
	fields := strings.Split(frame, ",")
	m := uniden.Mnemonic(fields[0])
	params := fields[1:]

	if len(s.faults) > 0 && (s.faults[0].mnemonic == "" || s.faults[0].mnemonic == m) {
		f := s.faults[0]
		s.faults = s.faults[1:]
		if f.drop {
			return "", false
		}
		return f.reply, true
	}

	switch m {
	case uniden.Model:
		return reply(m, s.model), true
	case uniden.Version:
		return reply(m, s.version), true
	case uniden.Volume:
		return s.level(m, &s.volume, params, 0, 15), true
	case uniden.Squelch:
		return s.level(m, &s.squelch, params, 0, 15), true
	case uniden.EnterProgram:
		s.program = true
		return reply(m, uniden.TokenOK), true
	case uniden.ExitProgram:
		s.program = false
		return reply(m, uniden.TokenOK), true
	case uniden.Key:
		return s.key(params), true
	}

	if !m.Known() {
		return uniden.TokenError, true
	}
	if !s.program {
		return reply(m, uniden.TokenWrongMode), true
	}

	switch m {
	case uniden.Screen:
		return reply(m, s.screen...), true
	case uniden.ChannelSettings:
		return s.channel(params), true
	case uniden.ChargeTime:
		return s.level(m, &s.chargeTime, params, 1, 16), true
	case uniden.ClearMemory:
		s.channels = map[int][]string{}
		return reply(m, uniden.TokenOK), true
	}
	return uniden.TokenError, true
}

func (s *Scanner) level(m uniden.Mnemonic, slot *int, params []string, lo, hi int) string {
	if len(params) == 0 {
		return reply(m, strconv.Itoa(*slot))
	}
	v, err := strconv.Atoi(params[0])
	if err != nil || v < lo || v > hi || len(params) > 1 {
		return uniden.TokenError
	}
	*slot = v
	return reply(m, uniden.TokenOK)
}

func (s *Scanner) channel(params []string) string {
	if len(params) == 0 {
		return uniden.TokenError
	}
	id, err := strconv.Atoi(params[0])
	if err != nil {
		return uniden.TokenError
	}
	if len(params) > 1 {
		s.channels[id] = append([]string{params[0]}, params[1:]...)
		return reply(uniden.ChannelSettings, uniden.TokenOK)
	}
	fields, ok := s.channels[id]
	if !ok {
		return uniden.TokenError
	}
	return reply(uniden.ChannelSettings, fields...)
}

func (s *Scanner) key(params []string) string {
	if len(params) != 2 || params[0] == "" {
		return uniden.TokenError
	}
	switch uniden.KeyMode(params[1]) {
	case uniden.KeyPress, uniden.KeyLong, uniden.KeyHold, uniden.KeyRelease:
	default:
		return uniden.TokenError
	}
	s.keys = append(s.keys, params[0]+","+params[1])
	return reply(uniden.Key, uniden.TokenOK)
}

func reply(m uniden.Mnemonic, fields ...string) string {
	return string(m) + "," + strings.Join(fields, ",")
}
