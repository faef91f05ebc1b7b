package contentnode

import "snapback/internal/storage"

// BatchClockRequest is the body of POST /users/batch_clock_status.
type BatchClockRequest struct {
	WalletPublicKeys []string `json:"walletPublicKeys"`
}

// WalletClock is one entry of a batch clock response.
type WalletClock struct {
	WalletPublicKey string `json:"walletPublicKey"`
	Clock           int64  `json:"clock"`
}

// BatchClockResponse is the data of a batch clock response.
type BatchClockResponse struct {
	Users []WalletClock `json:"users"`
}

// ClockStatusResponse is the data of GET /users/clock_status/{wallet}.
type ClockStatusResponse struct {
	ClockValue int64 `json:"clockValue"`
}

// ExportResponse is the data of GET /export.
type ExportResponse struct {
	ClockValue int64            `json:"clockValue"`
	Records    []storage.Record `json:"records"`
}
