package clock

import (
	"fmt"
	"sort"
	"strings"
)

// Unreported is the wire value a node returns for a wallet it holds no data for.
const Unreported int64 = -1

// Snapshot maps a wallet to the clock value one node reported for it.
// A wallet missing from the snapshot was never reported by that node.
// Thread-safe operations should be handled by the caller.
type Snapshot map[string]int64

// New creates a new empty snapshot.
func New() Snapshot {
	return make(Snapshot)
}

// Get returns the clock value for the wallet and whether it was reported.
func (s Snapshot) Get(wallet string) (int64, bool) {
	v, ok := s[wallet]
	return v, ok
}

// Set records the clock value for the wallet.
func (s Snapshot) Set(wallet string, value int64) {
	s[wallet] = value
}

// Wallets returns the reported wallets in sorted order.
func (s Snapshot) Wallets() []string {
	wallets := make([]string, 0, len(s))
	for w := range s {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets
}

// String returns a string representation of the snapshot.
func (s Snapshot) String() string {
	if len(s) == 0 {
		return "{}"
	}

	parts := make([]string, 0, len(s))
	for _, w := range s.Wallets() {
		parts = append(parts, fmt.Sprintf("%s:%d", w, s[w]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// CompareResult describes how a secondary clock relates to the primary clock.
type CompareResult int

const (
	// Missing indicates the secondary never reported a clock for the user.
	Missing CompareResult = iota
	// Behind indicates the secondary is missing writes the primary has.
	Behind
	// Equal indicates both clocks are the same.
	Equal
	// Ahead indicates the secondary saw writes accepted by the primary after
	// the primary clock was read.
	Ahead
)

// String returns the string representation of CompareResult.
func (r CompareResult) String() string {
	switch r {
	case Missing:
		return "MISSING"
	case Behind:
		return "BEHIND"
	case Equal:
		return "EQUAL"
	case Ahead:
		return "AHEAD"
	default:
		return "UNKNOWN"
	}
}

// Compare compares a secondary clock against the primary clock.
// reported is false when the secondary never returned a value.
func Compare(primary, secondary int64, reported bool) CompareResult {
	switch {
	case !reported:
		return Missing
	case primary > secondary:
		return Behind
	case primary == secondary:
		return Equal
	default:
		return Ahead
	}
}

// NeedsSync reports whether the secondary must be synced from the primary.
// An unreported secondary is treated as maximally stale.
func NeedsSync(primary, secondary int64, reported bool) bool {
	r := Compare(primary, secondary, reported)
	return r == Missing || r == Behind
}

// NeedsSyncFrom applies NeedsSync to the wallet's entry in a secondary snapshot.
func NeedsSyncFrom(primary int64, secondary Snapshot, wallet string) bool {
	v, ok := secondary.Get(wallet)
	return NeedsSync(primary, v, ok)
}
