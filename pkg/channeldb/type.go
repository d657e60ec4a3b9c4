package channeldb

import "strings"

// ChannelSnapshot is one stored CIN read.
type ChannelSnapshot struct {
	ID         int64  `db:"id"`
	ChannelID  int    `db:"channel_id"`
	CapturedAt int64  `db:"captured_at"`
	Fields     string `db:"fields"`
	Checksum   uint16 `db:"checksum"`
}

// FieldList splits the stored fields back into the list the scanner returned.
func (s *ChannelSnapshot) FieldList() []string {
	return strings.Split(s.Fields, ",")
}
