package dto

type AssignCarrierRequest struct {
	Volunteer bool `json:"volunteer"`
}
