package uniden

import "io"

// Mnemonic is the three letter command identifier sent as the first field of a frame.
type Mnemonic string

const (
	Volume          Mnemonic = "VOL"
	Squelch         Mnemonic = "SQL"
	Screen          Mnemonic = "STS"
	Model           Mnemonic = "MDL"
	Version         Mnemonic = "VER"
	EnterProgram    Mnemonic = "PRG"
	ExitProgram     Mnemonic = "EPG"
	Key             Mnemonic = "KEY"
	ChargeTime      Mnemonic = "BSV"
	ClearMemory     Mnemonic = "CLR"
	ChannelSettings Mnemonic = "CIN"
)

// Status tokens
const (
	TokenOK        = "OK"
	TokenError     = "ERR"
	TokenWrongMode = "NG"
)

// Mnemonics lists every command the engine knows about.
var Mnemonics = []Mnemonic{
	Volume, Squelch, Screen, Model, Version, EnterProgram,
	ExitProgram, Key, ChargeTime, ClearMemory, ChannelSettings,
}

// Known reports whether m is part of the supported command set.
func (m Mnemonic) Known() bool {
	for _, k := range Mnemonics {
		if k == m {
			return true
		}
	}
	return false
}

// ProgramOnly reports whether the scanner only accepts m in program mode.
func (m Mnemonic) ProgramOnly() bool {
	switch m {
	case ChannelSettings, Screen, ChargeTime, ClearMemory:
		return true
	}
	return false
}

// Mode is the device operating mode as tracked by the session.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeProgram
)

func (m Mode) String() string {
	if m == ModeProgram {
		return "program"
	}
	return "normal"
}

// KeyMode selects how KEY simulates a key press.
type KeyMode string

const (
	KeyPress   KeyMode = "P"
	KeyLong    KeyMode = "L"
	KeyHold    KeyMode = "H"
	KeyRelease KeyMode = "R"
)

// Command is a mnemonic with its already stringified parameters.
type Command struct {
	Mnemonic Mnemonic
	Params   []string
}

// Frame returns the wire encoding of the command.
func (c Command) Frame() []byte {
	return Encode(c.Mnemonic, c.Params...)
}

// Result is what a successfully classified response carries.
// OK is set for bare "OK" acknowledgements, otherwise Payload holds the data fields.
type Result struct {
	OK      bool
	Payload []string
}

// Identity is read from the scanner once on connect.
type Identity struct {
	Model   string `json:"model"`
	Version string `json:"version"`
}

// Transport is a half-duplex line channel to the scanner.
// ReadLine blocks until a full line arrives or the read timeout expires.
type Transport interface {
	io.Writer
	io.Closer
	ReadLine() ([]byte, error)
}

// OpenFunc opens a Transport for the given target, usually a serial device path.
type OpenFunc func(target string) (Transport, error)

// Executor runs a single command exchange.
type Executor interface {
	Execute(m Mnemonic, params ...string) (Result, error)
}

// Options tune a Scanner.
type Options struct {
	// Retry a command rejected with NG once inside program mode.
	AutoProgramMode bool
	// Maximum number of channels kept in the cache. Zero uses DefaultChannelCacheSize.
	ChannelCacheSize int
}

const DefaultChannelCacheSize = 500
