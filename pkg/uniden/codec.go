package uniden

import (
	"bytes"
	"strings"
)

const frameTerminator = '\r'

// Encode builds an outbound frame: the mnemonic, the comma joined parameters and a CR.
// Parameters are written as given; callers must keep commas and control characters out of them.
func Encode(m Mnemonic, params ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(string(m))
	if len(params) > 0 {
		buf.WriteByte(',')
		buf.WriteString(strings.Join(params, ","))
	}
	buf.WriteByte(frameTerminator)
	return buf.Bytes()
}

// Decode splits a response line into its comma separated fields.
// Trailing line endings are stripped first. An empty line decodes to a single empty field.
func Decode(line []byte) []string {
	trimmed := strings.TrimRight(string(line), " \t\r\n")
	return strings.Split(trimmed, ",")
}

// ValidParam reports whether s can be sent as a parameter without corrupting the frame.
func ValidParam(s string) bool {
	for _, r := range s {
		if r == ',' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// ParseCommandLine turns console input such as "VOL,5" into a Command.
// The mnemonic is upper-cased; unknown mnemonics and unsafe parameters are rejected.
func ParseCommandLine(line string) (Command, error) {
	fields := Decode([]byte(strings.TrimSpace(line)))
	m := Mnemonic(strings.ToUpper(strings.TrimSpace(fields[0])))
	if m == "" {
		return Command{}, ErrEmptyCommand
	}
	if !m.Known() {
		return Command{}, &UnknownMnemonicError{Mnemonic: m}
	}
	var params []string
	for _, p := range fields[1:] {
		if !ValidParam(p) {
			return Command{}, ErrInvalidParam
		}
		params = append(params, p)
	}
	return Command{Mnemonic: m, Params: params}, nil
}
