package models

import (
	"time"
)

type Event struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Tiers       []Tier         `json:"tiers,omitempty"`
	Sponsors    []Sponsor      `json:"sponsors,omitempty"`
	Services    []EventService `json:"services,omitempty"`
}

// EventService is a vendor engaged for an event (catering, security, AV).
// Service charges are organiser-side costs and never enter ticket pricing.
type EventService struct {
	ID           string  `json:"id"`
	ProviderName string  `json:"provider_name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Contact      string  `json:"contact,omitempty"`
}

// EventDetail is the listing view with aggregates over bookings and ratings.
type EventDetail struct {
	Event
	TotalCollection float64  `json:"total_collection"`
	AverageRating   *float64 `json:"average_rating"`
}

type Sponsor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}
