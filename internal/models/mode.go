package models

import (
	"fmt"
	"strings"
)

// Mode selects which edge set a query treats as active.
type Mode string

const (
	// ModeReal uses only persisted, validated bridge and canal connections.
	ModeReal Mode = "real"
	// ModeAll treats every parcel pair as connected. It is a diagnostic
	// upper bound, not a claim about physical infrastructure.
	ModeAll Mode = "all"
)

// ParseMode converts a query string value to a Mode. Empty input means ModeReal.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeReal):
		return ModeReal, nil
	case string(ModeAll):
		return ModeAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// EdgeKind distinguishes physical bridges from water links.
type EdgeKind string

const (
	EdgeBridge EdgeKind = "bridge"
	EdgeCanal  EdgeKind = "canal"
)
