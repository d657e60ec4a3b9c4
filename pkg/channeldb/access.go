package channeldb

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sigurn/crc16"
)

var ErrNoSnapshot = errors.New("no snapshot stored for channel")

var checksumTable = crc16.MakeTable(crc16.CRC16_ARC)

// Checksum is the CRC16/ARC of the fields as they appear on the wire.
func Checksum(fields []string) uint16 {
	return crc16.Checksum([]byte(strings.Join(fields, ",")), checksumTable)
}

// SaveSnapshot stores fields for a channel unless they match the latest stored snapshot.
// It reports whether a row was written.
func (a *Archive) SaveSnapshot(channelID int, fields []string, capturedAt time.Time) (bool, error) {
	joined := strings.Join(fields, ",")
	sum := Checksum(fields)

	latest, err := a.LatestSnapshot(channelID)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return false, err
	}
	if latest != nil && latest.Checksum == sum && latest.Fields == joined {
		return false, nil
	}

	_, err = a.db.Exec(
		"INSERT INTO channel_snapshots (channel_id, captured_at, fields, checksum) "+
			"VALUES (?, ?, ?, ?)",
		channelID,
		capturedAt.Unix(),
		joined,
		sum,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Archive) LatestSnapshot(channelID int) (*ChannelSnapshot, error) {
	row := a.db.QueryRow(
		"SELECT id, channel_id, captured_at, fields, checksum FROM channel_snapshots "+
			"WHERE channel_id = ? ORDER BY id DESC LIMIT 1",
		channelID,
	)

	var s ChannelSnapshot
	if err := row.Scan(&s.ID, &s.ChannelID, &s.CapturedAt, &s.Fields, &s.Checksum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return &s, nil
}

// SnapshotCount returns how many snapshots are stored for a channel.
func (a *Archive) SnapshotCount(channelID int) (int, error) {
	var n int
	err := a.db.QueryRow(
		"SELECT COUNT(*) FROM channel_snapshots WHERE channel_id = ?",
		channelID,
	).Scan(&n)
	return n, err
}

// Prune removes snapshots captured before cutoff. The latest snapshot of
// every channel is kept regardless of its age.
func (a *Archive) Prune(cutoff time.Time) (int64, error) {
	res, err := a.db.Exec(
		"DELETE FROM channel_snapshots WHERE captured_at < ? AND id NOT IN "+
			"(SELECT MAX(id) FROM channel_snapshots GROUP BY channel_id)",
		cutoff.Unix(),
	)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Info().
		Int64("removed", removed).
		Str("cutoff", cutoff.UTC().Format(time.RFC3339)).
		Msg("Pruned channel snapshots")
	return removed, nil
}
