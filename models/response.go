package models

// Response is the envelope returned by the HTTP API
type Response[T any] struct {
	Data T    `json:"data"`
	Meta Meta `json:"meta"`
}

type Meta struct {
	Ticker     string `json:"ticker,omitempty"`
	TargetDate string `json:"target_date,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	Window     int    `json:"window,omitempty"`
	Count      int    `json:"count,omitempty"`
}
