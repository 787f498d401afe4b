package tunnelstate

import (
	"time"

	"bslocal/internal/tunnel"
)

// Record is the on-disk form of tunnel.State. It carries the access key so
// a later stop sends the same -k as the start; Store writes it 0600.
type Record struct {
	PID        int       `toml:"pid"`
	AccessKey  string    `toml:"access_key,omitempty"`
	BinaryPath string    `toml:"binary_path"`
	LogFile    string    `toml:"log_file"`
	SessionID  string    `toml:"session_id"`
	StartedAt  time.Time `toml:"started_at"`
	Options    []Option  `toml:"options,omitempty"`
}

// Option keeps option order, which a TOML table would lose.
type Option struct {
	Key   string `toml:"key"`
	Value any    `toml:"value"`
}

// FromState converts controller state into a record. Options with a nil
// value are dropped.
func FromState(state tunnel.State) Record {
	rec := Record{
		PID:        state.PID,
		AccessKey:  state.AccessKey,
		BinaryPath: state.BinaryPath,
		LogFile:    state.LogFile,
		SessionID:  state.SessionID,
		StartedAt:  state.StartedAt,
	}
	for _, f := range state.Options.Flags() {
		if f.Value == nil {
			continue
		}
		rec.Options = append(rec.Options, Option{Key: f.Key, Value: f.Value})
	}
	return rec
}

// State converts the record back for tunnel.Controller.Restore.
func (r Record) State() tunnel.State {
	flags := make([]tunnel.Flag, 0, len(r.Options))
	for _, opt := range r.Options {
		flags = append(flags, tunnel.Flag{Key: opt.Key, Value: opt.Value})
	}
	return tunnel.State{
		PID:        r.PID,
		AccessKey:  r.AccessKey,
		BinaryPath: r.BinaryPath,
		LogFile:    r.LogFile,
		Options:    tunnel.NewOptions(flags...),
		SessionID:  r.SessionID,
		StartedAt:  r.StartedAt,
	}
}
