package models

import "time"

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type Rating struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	UserPhone string `json:"user_phone"`
	Rating    int    `json:"rating"`
}
