package dto

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DenialResponse is returned with 403 when a plan limit blocks the request.
type DenialResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	ReasonCode   string `json:"reason_code"`
	CurrentCount int    `json:"current_count"`
	MaxCount     int    `json:"max_count"`
	PlanTier     string `json:"plan_tier"`
	PlanName     string `json:"plan_name"`
	OwnerName    string `json:"owner_name,omitempty"`
}
