package dto

import "time"

type CreateItemRequest struct {
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Quantity  int        `json:"quantity"`
	Unit      string     `json:"unit"`
	Location  string     `json:"location"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type FeedbackRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}
