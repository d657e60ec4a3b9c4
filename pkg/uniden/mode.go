package uniden

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// scopedExecutor runs commands for a body that already holds the session lock.
type scopedExecutor struct {
	s *Scanner
}

func (x scopedExecutor) Execute(m Mnemonic, params ...string) (Result, error) {
	return x.s.execute(m, params)
}

// EnterProgramMode sends PRG. The session switches to program mode once the scanner acknowledges.
func (s *Scanner) EnterProgramMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.execute(EnterProgram, nil)
	return err
}

// ExitProgramMode sends EPG and returns to normal mode on success.
func (s *Scanner) ExitProgramMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.execute(ExitProgram, nil)
	return err
}

// WithProgramMode runs body with the scanner in program mode.
//
// EPG is sent on every way out of body, including errors and panics.
// When both body and EPG fail, the returned error carries both.
// If the session is already in program mode body runs as is.
// The session lock is held for the whole scope, so body must use the
// Executor it is given rather than the Scanner's own methods.
func (s *Scanner) WithProgramMode(body func(Executor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withProgramMode(body)
}

func (s *Scanner) withProgramMode(body func(Executor) error) (err error) {
	if s.mode == ModeProgram {
		return body(scopedExecutor{s})
	}

	if _, err := s.execute(EnterProgram, nil); err != nil {
		return err
	}
	defer func() {
		if s.mode != ModeProgram {
			return
		}
		if _, exitErr := s.execute(ExitProgram, nil); exitErr != nil {
			log.Error().Err(exitErr).Msg("Failed to leave program mode")
			err = errors.Join(err, exitErr)
		}
	}()

	return body(scopedExecutor{s})
}

// trackMode follows PRG/EPG acknowledgements.
func (s *Scanner) trackMode(m Mnemonic) {
	switch m {
	case EnterProgram:
		s.mode = ModeProgram
	case ExitProgram:
		s.mode = ModeNormal
	default:
		return
	}
	log.Debug().Stringer("mode", s.mode).Msg("Scanner mode changed")
}

// inProgramMode executes a single command inside its own program mode scope.
func (s *Scanner) inProgramMode(m Mnemonic, params []string) (res Result, err error) {
	err = s.withProgramMode(func(x Executor) error {
		var execErr error
		res, execErr = x.Execute(m, params...)
		return execErr
	})
	return res, err
}
