package replica

import (
	"fmt"
	"time"
)

// SyncType describes why a sync was issued.
type SyncType string

const (
	// Recurring syncs are scheduled in the background to keep secondaries up to date.
	Recurring SyncType = "RECURRING"
	// Manual syncs are triggered by a user data write to the primary.
	Manual SyncType = "MANUAL"
)

// Valid reports whether t is a known sync type.
func (t SyncType) Valid() bool {
	return t == Recurring || t == Manual
}

// ParseSyncType parses the wire form of a sync type.
func ParseSyncType(s string) (SyncType, error) {
	t := SyncType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown sync type %q", s)
	}
	return t, nil
}

// Assignment is one user's replica set as reported by discovery.
type Assignment struct {
	UserID     int64  `json:"user_id"`
	Wallet     string `json:"wallet"`
	Primary    string `json:"primary"`
	Secondary1 string `json:"secondary1"`
	Secondary2 string `json:"secondary2"`
}

// Secondaries returns the non-empty, distinct secondary endpoints in order.
func (a Assignment) Secondaries() []string {
	out := make([]string, 0, 2)
	if a.Secondary1 != "" {
		out = append(out, a.Secondary1)
	}
	if a.Secondary2 != "" && a.Secondary2 != a.Secondary1 {
		out = append(out, a.Secondary2)
	}
	return out
}

// InSlice reports whether the user falls into the given modulo slice.
func (a Assignment) InSlice(slice, moduloBase int) bool {
	if moduloBase <= 1 {
		return true
	}
	return int(a.UserID%int64(moduloBase)) == slice
}

// FilterPrimary returns the assignments whose primary is endpoint.
func FilterPrimary(users []Assignment, endpoint string) []Assignment {
	out := make([]Assignment, 0, len(users))
	for _, u := range users {
		if u.Primary == endpoint {
			out = append(out, u)
		}
	}
	return out
}

// FilterSlice returns the assignments that fall into the given modulo slice.
func FilterSlice(users []Assignment, slice, moduloBase int) []Assignment {
	out := make([]Assignment, 0, len(users)/max(moduloBase, 1)+1)
	for _, u := range users {
		if u.InSlice(slice, moduloBase) {
			out = append(out, u)
		}
	}
	return out
}

// SyncPayload is the body of a sync request sent to a secondary.
type SyncPayload struct {
	Wallet              []string `json:"wallet"`
	CreatorNodeEndpoint string   `json:"creator_node_endpoint"`
	SyncType            SyncType `json:"sync_type"`
}

// SyncRequest is the job data for one primary -> secondary sync.
type SyncRequest struct {
	Type              SyncType
	Wallet            string
	PrimaryEndpoint   string
	SecondaryEndpoint string
	Payload           SyncPayload
	EnqueuedAt        time.Time
}

// NewSyncRequest builds a sync request with its wire payload.
func NewSyncRequest(t SyncType, wallet, primary, secondary string, now time.Time) SyncRequest {
	return SyncRequest{
		Type:              t,
		Wallet:            wallet,
		PrimaryEndpoint:   primary,
		SecondaryEndpoint: secondary,
		Payload: SyncPayload{
			Wallet:              []string{wallet},
			CreatorNodeEndpoint: primary,
			SyncType:            t,
		},
		EnqueuedAt: now,
	}
}

// Validate checks the request carries everything needed to issue the sync.
func (r SyncRequest) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid sync type %q", r.Type)
	}
	if r.Wallet == "" {
		return fmt.Errorf("sync request missing wallet")
	}
	if r.SecondaryEndpoint == "" {
		return fmt.Errorf("sync request missing secondary endpoint")
	}
	if len(r.Payload.Wallet) == 0 {
		return fmt.Errorf("sync request missing payload")
	}
	return nil
}

// Cursor is the scan position carried between orchestrator runs.
// Slice advances by one (mod ModuloBase) after every run regardless of outcome.
type Cursor struct {
	Slice               int   `json:"currentModuloSlice"`
	ModuloBase          int   `json:"moduloBase"`
	LastProcessedUserID int64 `json:"lastProcessedUserId"`
}

// Next returns the cursor for the following run with the slice advanced.
func (c Cursor) Next() Cursor {
	next := c
	if c.ModuloBase > 0 {
		next.Slice = (c.Slice + 1) % c.ModuloBase
	}
	return next
}

// String implements fmt.Stringer.
func (c Cursor) String() string {
	return fmt.Sprintf("slice %d/%d after user %d", c.Slice, c.ModuloBase, c.LastProcessedUserID)
}
