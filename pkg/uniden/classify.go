package uniden

// Classify turns decoded response fields into a Result or a CommandError.
//
// The first field is checked for ERR, which is how the scanner rejects a
// command outright. Otherwise it is taken as the echoed mnemonic and dropped;
// the next field is then a status token (ERR, NG, OK) or the start of the payload.
func Classify(m Mnemonic, fields []string) (Result, error) {
	if len(fields) == 0 {
		return Result{}, transportError(m, ErrEmptyResponse)
	}
	if fields[0] == TokenError {
		return Result{}, protocolError(m, fields[1:])
	}

	rest := fields[1:]
	if len(rest) == 0 {
		if fields[0] == "" {
			return Result{}, transportError(m, ErrEmptyResponse)
		}
		return Result{}, transportError(m, ErrMalformedFrame)
	}

	switch rest[0] {
	case TokenError:
		return Result{}, protocolError(m, rest[1:])
	case TokenWrongMode:
		return Result{}, modeInvalidError(m, nil)
	case TokenOK:
		return Result{OK: true}, nil
	}
	return Result{Payload: rest}, nil
}
