package handlers

// ErrorResponse is the body for failures reported outside huma's error
// model, such as panics caught by the recovery middleware.
type ErrorResponse struct {
	Error string `json:"error" example:"internal server error"`
}

// StatusResponse is the body for the health and readiness probes.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
	Reason string `json:"reason,omitempty" example:"no marketplace source configured"`
}
