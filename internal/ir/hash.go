package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for algorithm migration.
const (
	DomainCommand = "gridsync/command/v1"
	DomainState   = "gridsync/state/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data). The null byte
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CommandID computes the content-addressed id of a command at seq. The id
// is stable across restarts and replays given the same inputs; the tx id is
// excluded so a replay under fresh correlation ids reproduces it.
func CommandID(seq int64, cmd Command) (string, error) {
	obj := IRObject{
		"kind":   IRString(cmd.Kind),
		"caller": IRString(cmd.Caller),
		"args":   cmd.Args(),
		"seq":    IRInt(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CommandID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommand, canonical), nil
}

// StateHash computes the fingerprint of an encoded ledger state.
func StateHash(state IRObject) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustCommandID is like CommandID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCommandID(seq int64, cmd Command) string {
	id, err := CommandID(seq, cmd)
	if err != nil {
		panic(err)
	}
	return id
}
