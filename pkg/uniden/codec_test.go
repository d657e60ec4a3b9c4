package uniden_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic uniden.Mnemonic
		params   []string
		want     string
	}{
		{name: "no parameters", mnemonic: uniden.Volume, want: "VOL\r"},
		{name: "one parameter", mnemonic: uniden.Volume, params: []string{"14"}, want: "VOL,14\r"},
		{name: "key press", mnemonic: uniden.Key, params: []string{"H", "P"}, want: "KEY,H,P\r"},
		{name: "empty parameter kept", mnemonic: uniden.ChannelSettings, params: []string{"1", ""}, want: "CIN,1,\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(uniden.Encode(tt.mnemonic, tt.params...)))
		})
	}
}

func TestCommandFrame(t *testing.T) {
	cmd := uniden.Command{Mnemonic: uniden.Squelch, Params: []string{"3"}}
	assert.Equal(t, "SQL,3\r", string(cmd.Frame()))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "cr terminated", line: "VOL,14\r", want: []string{"VOL", "14"}},
		{name: "crlf terminated", line: "MDL,BCD396XT\r\n", want: []string{"MDL", "BCD396XT"}},
		{name: "bare error", line: "ERR\r", want: []string{"ERR"}},
		{name: "empty fields kept", line: "STS,011000,,SCAN\r", want: []string{"STS", "011000", "", "SCAN"}},
		{name: "empty input", line: "", want: []string{""}},
		{name: "only line ending", line: "\r\n", want: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniden.Decode([]byte(tt.line)))
		})
	}
}

func TestEncodeDecodeEcho(t *testing.T) {
	paramSets := [][]string{
		nil,
		{"1"},
		{"H", "P"},
		{"12", "Fire Dispatch", "01544300", "NFM"},
	}

	for _, m := range uniden.Mnemonics {
		for _, params := range paramSets {
			fields := uniden.Decode(uniden.Encode(m, params...))
			require.NotEmpty(t, fields)
			assert.Equal(t, string(m), fields[0])
			if len(params) == 0 {
				assert.Len(t, fields, 1)
			} else {
				assert.Equal(t, params, fields[1:])
			}
		}
	}
}

func TestValidParam(t *testing.T) {
	assert.True(t, uniden.ValidParam("Fire Dispatch"))
	assert.True(t, uniden.ValidParam(""))
	assert.False(t, uniden.ValidParam("a,b"))
	assert.False(t, uniden.ValidParam("line\r"))
	assert.False(t, uniden.ValidParam("tab\there"))
}

func TestParseCommandLine(t *testing.T) {
	cmd, err := uniden.ParseCommandLine(" vol,5 ")
	require.NoError(t, err)
	assert.Equal(t, uniden.Volume, cmd.Mnemonic)
	assert.Equal(t, []string{"5"}, cmd.Params)

	cmd, err = uniden.ParseCommandLine("MDL")
	require.NoError(t, err)
	assert.Equal(t, uniden.Model, cmd.Mnemonic)
	assert.Empty(t, cmd.Params)

	_, err = uniden.ParseCommandLine("   ")
	assert.ErrorIs(t, err, uniden.ErrEmptyCommand)

	_, err = uniden.ParseCommandLine("XYZ,1")
	var unknown *uniden.UnknownMnemonicError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, uniden.Mnemonic("XYZ"), unknown.Mnemonic)

	_, err = uniden.ParseCommandLine("VOL,\x01")
	assert.ErrorIs(t, err, uniden.ErrInvalidParam)
}

func TestMnemonicProgramOnly(t *testing.T) {
	programOnly := map[uniden.Mnemonic]bool{
		uniden.ChannelSettings: true,
		uniden.Screen:          true,
		uniden.ChargeTime:      true,
		uniden.ClearMemory:     true,
	}
	for _, m := range uniden.Mnemonics {
		assert.True(t, m.Known(), m)
		assert.Equal(t, programOnly[m], m.ProgramOnly(), m)
	}
	assert.False(t, uniden.Mnemonic("ABC").Known())
}
