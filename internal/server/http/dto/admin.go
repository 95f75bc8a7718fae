package dto

// ResetRequest selects the billing period to reset; empty means the current one.
type ResetRequest struct {
	Period string `json:"period"`
}

// ResetResponse reports how many accounts were reset.
type ResetResponse struct {
	Period string `json:"period"`
	Reset  int64  `json:"reset"`
}

// ActivateRequest starts or changes a subscription.
type ActivateRequest struct {
	SubscriberID string `json:"subscriber_id"`
	Plan         string `json:"plan"`
}

// AccountResponse describes an allowance account.
type AccountResponse struct {
	SubscriberID     string `json:"subscriber_id"`
	Plan             string `json:"plan"`
	CreditsRemaining int    `json:"credits_remaining"`
	FreeTrialUsed    bool   `json:"free_trial_used"`
	ResetPeriod      string `json:"reset_period"`
	Active           bool   `json:"active"`
}

// TokenRequest names the principal a bearer token is issued for.
type TokenRequest struct {
	Subject    string `json:"subject"`
	Capability string `json:"capability"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}
