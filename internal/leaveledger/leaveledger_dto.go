package leaveledger

// DeductRequest is validated by the service so that a bad category or
// amount reports its own error code.
type DeductRequest struct {
	Category string `json:"category"`
	Days     int    `json:"days"`
}

type LedgerResponse struct {
	EmployeeID string `json:"employee_id"`
	Remaining  int    `json:"remaining"`
	Sick       int    `json:"sick"`
	Emergency  int    `json:"emergency"`
	Total      int    `json:"total"`
	Version    int64  `json:"version"`
}

func mapToResponse(l LeaveLedger) LedgerResponse {
	return LedgerResponse{
		EmployeeID: l.EmployeeID,
		Remaining:  l.Remaining,
		Sick:       l.Sick,
		Emergency:  l.Emergency,
		Total:      l.Total,
		Version:    l.Version,
	}
}
