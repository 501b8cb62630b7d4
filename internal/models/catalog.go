package models

type Client struct {
	ClientID   string `json:"client_id"`
	Identity   string `json:"identity"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Vulnerable bool   `json:"vulnerable,omitempty"`
}

func (c Client) DisplayName() string {
	if c.GivenName == "" {
		return c.FamilyName
	}
	if c.FamilyName == "" {
		return c.GivenName
	}
	return c.GivenName + " " + c.FamilyName
}

type Category struct {
	CategoryID        string `json:"category_id"`
	AccountID         string `json:"account_id,omitempty"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	AvgServiceSeconds int    `json:"avg_service_seconds"`
}

type Kiosk struct {
	KioskID  string `json:"kiosk_id"`
	Code     string `json:"code"`
	BranchID string `json:"branch_id"`
}

const defaultWaitMinutes = 15

// EstimatedWaitSeconds rounds the category average up to whole minutes.
// Categories with no recorded average fall back to 15 minutes.
func EstimatedWaitSeconds(avgServiceSeconds int) int {
	if avgServiceSeconds <= 0 {
		return defaultWaitMinutes * 60
	}
	minutes := (avgServiceSeconds + 59) / 60
	return minutes * 60
}
