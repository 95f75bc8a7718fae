package dto

// AllowanceResponse reports whether the caller may submit another letter.
type AllowanceResponse struct {
	HasAllowance bool   `json:"has_allowance"`
	Remaining    int    `json:"remaining"`
	PlanName     string `json:"plan_name"`
	IsSuper      bool   `json:"is_super"`
}

// DeductResponse is returned by the standalone deduction endpoint.
type DeductResponse struct {
	Deducted bool `json:"deducted"`
}
