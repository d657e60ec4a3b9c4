// Package uniden drives a Uniden scanner over its ASCII command protocol.
//
// A Scanner owns one Transport and serializes every exchange on it: a frame
// is written and exactly one response line is read before the next command.
// Commands that the scanner only accepts in program mode are bracketed with
// PRG/EPG, and EPG is always attempted when leaving the bracket.
package uniden

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Scanner is a session with one scanner.
type Scanner struct {
	mu        sync.Mutex
	open      OpenFunc
	opts      Options
	transport Transport
	target    string
	mode      Mode
	identity  Identity
	cache     *propertyCache
}

// Initialize a new Scanner session. Nothing is opened until Connect.
func NewScanner(open OpenFunc, opts Options) *Scanner {
	return &Scanner{
		open:  open,
		opts:  opts,
		cache: newPropertyCache(opts.ChannelCacheSize),
	}
}

// Connect opens the transport and reads the scanner model and firmware version.
// If any step fails the transport is closed again and the session stays disconnected.
func (s *Scanner) Connect(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return fmt.Errorf("connect %s: %w", target, ErrAlreadyConnected)
	}

	t, err := s.open(target)
	if err != nil {
		return transportError("", fmt.Errorf("open %s: %w", target, err))
	}
	s.transport = t
	s.target = target
	s.mode = ModeNormal

	identity, err := s.readIdentity()
	if err != nil {
		if closeErr := t.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("target", target).Msg("Failed to close transport after identification error")
		}
		s.transport = nil
		s.target = ""
		return fmt.Errorf("identify scanner on %s: %w", target, err)
	}
	s.identity = identity

	log.Info().
		Str("target", target).
		Str("model", identity.Model).
		Str("version", identity.Version).
		Msg("Connected to scanner")
	return nil
}

func (s *Scanner) readIdentity() (Identity, error) {
	model, err := s.readString(Model)
	if err != nil {
		return Identity{}, err
	}
	version, err := s.readString(Version)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Model: model, Version: version}, nil
}

func (s *Scanner) readString(m Mnemonic) (string, error) {
	res, err := s.execute(m, nil)
	if err != nil {
		return "", err
	}
	if len(res.Payload) == 0 {
		return "", transportError(m, ErrMalformedFrame)
	}
	return res.Payload[0], nil
}

// Disconnect releases the transport. It is safe to call on a disconnected session.
// A session left in program mode gets one EPG attempt first; the transport is
// closed whether or not that succeeds.
func (s *Scanner) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return nil
	}

	var exitErr error
	if s.mode == ModeProgram {
		if _, exitErr = s.exchange(ExitProgram, nil); exitErr != nil {
			log.Warn().Err(exitErr).Msg("Failed to leave program mode before disconnecting")
		}
	}

	closeErr := s.transport.Close()
	target := s.target
	s.transport = nil
	s.target = ""
	s.mode = ModeNormal
	s.identity = Identity{}
	s.cache.Reset()
	log.Info().Str("target", target).Msg("Disconnected from scanner")

	if closeErr != nil {
		closeErr = transportError("", fmt.Errorf("close %s: %w", target, closeErr))
	}
	return errors.Join(exitErr, closeErr)
}

// Connected reports whether the session currently owns a transport.
func (s *Scanner) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// Identity returns the model and version read during Connect.
func (s *Scanner) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Mode returns the operating mode the session last saw the scanner acknowledge.
func (s *Scanner) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Execute sends a raw command and classifies the reply.
// Program-only commands are refused locally in normal mode unless
// Options.AutoProgramMode is set.
func (s *Scanner) Execute(m Mnemonic, params ...string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(m, params)
}

func (s *Scanner) execute(m Mnemonic, params []string) (Result, error) {
	if m.ProgramOnly() && s.mode != ModeProgram {
		if s.opts.AutoProgramMode {
			return s.inProgramMode(m, params)
		}
		return Result{}, modeInvalidError(m, errRequiresProgramMode)
	}

	res, err := s.exchange(m, params)
	s.syncCache(m, params, res, err)
	if err == nil {
		s.trackMode(m)
		return res, nil
	}

	if s.opts.AutoProgramMode && s.mode == ModeNormal && KindOf(err) == KindModeInvalid &&
		m != EnterProgram && m != ExitProgram {
		log.Info().Str("command", string(m)).Msg("Command rejected in normal mode, retrying in program mode")
		return s.inProgramMode(m, params)
	}
	return Result{}, err
}

// exchange writes one frame and reads one response line.
func (s *Scanner) exchange(m Mnemonic, params []string) (Result, error) {
	if s.transport == nil {
		return Result{}, transportError(m, ErrNotConnected)
	}

	frame := Encode(m, params...)
	log.Debug().Str("frame", strconv.Quote(string(frame))).Msg("> scanner")
	if _, err := s.transport.Write(frame); err != nil {
		return Result{}, transportError(m, fmt.Errorf("write: %w", err))
	}

	line, err := s.transport.ReadLine()
	if err != nil {
		return Result{}, transportError(m, fmt.Errorf("read: %w", err))
	}
	log.Debug().Str("line", strconv.Quote(string(line))).Msg("< scanner")
	if len(bytes.TrimSpace(line)) == 0 {
		return Result{}, transportError(m, ErrEmptyResponse)
	}

	return Classify(m, Decode(line))
}

// Volume returns the cached volume, querying the scanner on first use.
func (s *Scanner) Volume() (int, error) {
	return s.intProperty(Volume, &s.cache.volume)
}

// SetVolume writes the volume. The cache is only updated once the scanner accepts it.
func (s *Scanner) SetVolume(v int) error {
	return s.setIntProperty(Volume, v)
}

// Squelch returns the cached squelch level, querying the scanner on first use.
func (s *Scanner) Squelch() (int, error) {
	return s.intProperty(Squelch, &s.cache.squelch)
}

// SetSquelch writes the squelch level. The cache is only updated once the scanner accepts it.
func (s *Scanner) SetSquelch(v int) error {
	return s.setIntProperty(Squelch, v)
}

func (s *Scanner) intProperty(m Mnemonic, slot *optional[int]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := slot.Get(); ok {
		return v, nil
	}

	raw, err := s.readString(m)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &CommandError{Kind: KindTransport, Mnemonic: m, Fields: []string{raw}, Err: fmt.Errorf("parse value: %w", err)}
	}
	slot.Set(v)
	return v, nil
}

func (s *Scanner) setIntProperty(m Mnemonic, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.execute(m, []string{strconv.Itoa(v)})
	return err
}

// syncCache applies the outcome of one exchange to the cache, whichever
// caller issued it. A confirmed write becomes the cached value. A write whose
// reply was lost leaves the scanner state unknown and drops the entry.
// Rejected writes leave the scanner as it was and change nothing.
func (s *Scanner) syncCache(m Mnemonic, params []string, res Result, err error) {
	lost := KindOf(err) == KindTransport
	if err != nil && !lost {
		return
	}

	switch m {
	case Volume, Squelch:
		if len(params) != 1 {
			return
		}
		slot := s.cache.level(m)
		v, convErr := strconv.Atoi(strings.TrimSpace(params[0]))
		if lost || convErr != nil {
			slot.Clear()
			return
		}
		slot.Set(v)
	case ClearMemory:
		s.cache.channels.Reset()
	case ChannelSettings:
		if len(params) == 0 {
			return
		}
		id, convErr := strconv.Atoi(strings.TrimSpace(params[0]))
		if convErr != nil {
			return
		}
		switch {
		case len(params) > 1:
			s.cache.channels.Invalidate(id)
		case !lost:
			s.cache.channels.Put(id, res.Payload)
		}
	}
}

// Channel reads the raw CIN fields for a channel inside program mode and caches them.
func (s *Scanner) Channel(id int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields []string
	err := s.withProgramMode(func(x Executor) error {
		res, err := x.Execute(ChannelSettings, strconv.Itoa(id))
		if err != nil {
			return err
		}
		fields = res.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), fields...), nil
}

// CachedChannel returns the fields of a previous Channel call without talking to the scanner.
func (s *Scanner) CachedChannel(id int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.channels.Get(id)
}

// InvalidateChannel drops a cached channel so the next Channel call asks the scanner again.
func (s *Scanner) InvalidateChannel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.channels.Invalidate(id)
}

// SetChannel is not supported: the CIN write parameter set is not defined yet.
func (s *Scanner) SetChannel(id int, fields ...string) error {
	return unsupportedError(ChannelSettings, fmt.Sprintf("writing channel %d is not implemented", id))
}

// Screen returns the raw STS fields, read inside program mode.
func (s *Scanner) Screen() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.inProgramMode(Screen, nil)
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// PressKey simulates a front panel key. An empty mode means a single press.
func (s *Scanner) PressKey(key string, mode KeyMode) error {
	if mode == "" {
		mode = KeyPress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.execute(Key, []string{key, string(mode)})
	return err
}

// SetChargeTime sets the battery charge time in hours.
func (s *Scanner) SetChargeTime(hours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.inProgramMode(ChargeTime, []string{strconv.Itoa(hours)})
	return err
}

// ClearMemory wipes the scanner memory. Cached channels are dropped unless the scanner refused.
func (s *Scanner) ClearMemory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.inProgramMode(ClearMemory, nil)
	return err
}
