package sol

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ClockAccountDataSize is the on-chain size of the Clock sysvar.
const ClockAccountDataSize = 40

// Clock is the Solana network's Clock sysvar as parsed by GetClock, for
// comparing local wall-clock time against the chain's notion of time;
// nothing in this module calls GetClock (spec §9 calls out
// slot vs. wall-clock age as two distinct staleness signals; this gives an
// operator a baseline for the gap between them).
type Clock struct {
	Slot                uint64
	EpochStartTime      uint64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       uint64
}

// GetClock fetches and parses the current Clock sysvar.
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	snap, err := c.GetAccount(ctx, solana.SysVarClockPubkey.String())
	if err != nil {
		return nil, fmt.Errorf("fetch clock sysvar: %w", err)
	}
	if len(snap.Data) != ClockAccountDataSize {
		return nil, fmt.Errorf("invalid clock account data length: expected %d bytes, got %d", ClockAccountDataSize, len(snap.Data))
	}

	data := snap.Data
	return &Clock{
		Slot:                binary.LittleEndian.Uint64(data[0:8]),
		EpochStartTime:      binary.LittleEndian.Uint64(data[8:16]),
		Epoch:               binary.LittleEndian.Uint64(data[16:24]),
		LeaderScheduleEpoch: binary.LittleEndian.Uint64(data[24:32]),
		UnixTimestamp:       binary.LittleEndian.Uint64(data[32:40]),
	}, nil
}
