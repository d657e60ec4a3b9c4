package scannersim

import (
	"strings"
	"sync"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

type Scanner struct {
	mu sync.Mutex

	model      string
	version    string
	volume     int
	squelch    int
	chargeTime int
	program    bool
	screen     []string
	channels   map[int][]string
	keys       []string

	buf        []byte
	pending    []string
	received   []string
	faults     []fault
	closed     bool
	closeCount int
	openErr    error
}

// fault replaces the normal reply to the next matching command.
// An empty mnemonic matches any command.
type fault struct {
	mnemonic uniden.Mnemonic
	reply    string
	drop     bool
}

// FailNext makes the next m answer with a status token.
// TokenError is sent bare, any other token after the echoed mnemonic.
func (s *Scanner) FailNext(m uniden.Mnemonic, token string) {
	r := string(m) + "," + token
	if token == uniden.TokenError {
		r = uniden.TokenError
	}
	s.ReplyNext(m, r)
}

// ReplyNext makes the next m answer with the given raw line.
func (s *Scanner) ReplyNext(m uniden.Mnemonic, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{mnemonic: m, reply: line})
}

// DropNext swallows the next m so the reader times out.
func (s *Scanner) DropNext(m uniden.Mnemonic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{mnemonic: m, drop: true})
}

// FailOpen makes every following Open return err. Nil restores normal behaviour.
func (s *Scanner) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// Received returns every frame written so far, without terminators.
func (s *Scanner) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Count returns how many frames started with m.
func (s *Scanner) Count(m uniden.Mnemonic) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, frame := range s.received {
		if frame == string(m) || strings.HasPrefix(frame, string(m)+",") {
			n++
		}
	}
	return n
}

func (s *Scanner) ResetReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = nil
}

func (s *Scanner) InProgramMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

func (s *Scanner) Levels() (volume, squelch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.squelch
}

func (s *Scanner) SetLevels(volume, squelch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	s.squelch = squelch
}

func (s *Scanner) ChargeTime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chargeTime
}

func (s *Scanner) ChannelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// Keys returns the simulated key presses as "key,mode" pairs.
func (s *Scanner) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func (s *Scanner) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scanner) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}
