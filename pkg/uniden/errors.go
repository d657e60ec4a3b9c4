package uniden

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure classes a command can end in.
type ErrorKind uint8

const (
	KindProtocol ErrorKind = iota + 1
	KindModeInvalid
	KindTransport
	KindUnsupported
)

var (
	ErrProtocol    = errors.New("scanner rejected command")
	ErrModeInvalid = errors.New("command not valid in current mode")
	ErrTransport   = errors.New("transport failure")
	ErrUnsupported = errors.New("unsupported operation")
)

var (
	ErrNotConnected     = errors.New("scanner not connected")
	ErrAlreadyConnected = errors.New("scanner already connected")
	ErrEmptyResponse    = errors.New("empty response")
	ErrMalformedFrame   = errors.New("malformed response frame")
	ErrEmptyCommand     = errors.New("empty command")
	ErrInvalidParam     = errors.New("parameter contains a comma or control character")

	errRequiresProgramMode = errors.New("requires program mode")
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindModeInvalid:
		return "mode_invalid"
	case KindTransport:
		return "transport"
	case KindUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseErrorKind is the inverse of ErrorKind.String.
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k := KindProtocol; k <= KindUnsupported; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Sentinel returns the Err... value errors of this kind match with errors.Is.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindProtocol:
		return ErrProtocol
	case KindModeInvalid:
		return ErrModeInvalid
	case KindTransport:
		return ErrTransport
	case KindUnsupported:
		return ErrUnsupported
	}
	return nil
}

// CommandError describes why a command failed.
// Fields holds whatever the scanner sent after the status token, if anything.
type CommandError struct {
	Kind     ErrorKind
	Mnemonic Mnemonic
	Fields   []string
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	if e.Mnemonic != "" {
		fmt.Fprintf(&b, "%s: ", e.Mnemonic)
	}
	fmt.Fprintf(&b, "%v", e.Kind.Sentinel())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Fields, ","))
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrModeInvalid) works.
func (e *CommandError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// KindOf returns the kind of a CommandError anywhere in err's chain, or zero.
func KindOf(err error) ErrorKind {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return 0
}

func protocolError(m Mnemonic, fields []string) error {
	return &CommandError{Kind: KindProtocol, Mnemonic: m, Fields: fields}
}

func modeInvalidError(m Mnemonic, cause error) error {
	return &CommandError{Kind: KindModeInvalid, Mnemonic: m, Err: cause}
}

func transportError(m Mnemonic, cause error) error {
	return &CommandError{Kind: KindTransport, Mnemonic: m, Err: cause}
}

func unsupportedError(m Mnemonic, what string) error {
	return &CommandError{Kind: KindUnsupported, Mnemonic: m, Err: errors.New(what)}
}

// UnknownMnemonicError is returned when console input names a command outside the known set.
type UnknownMnemonicError struct {
	Mnemonic Mnemonic
}

func (e *UnknownMnemonicError) Error() string {
	return fmt.Sprintf("unknown mnemonic %q", string(e.Mnemonic))
}
