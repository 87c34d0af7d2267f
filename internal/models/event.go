package models

import "time"

type Event struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Price          int64     `json:"price"`
	Capacity       int       `json:"capacity"`
	AvailableSpots int       `json:"available_spots"`
	Deadline       int       `json:"deadline_minutes"`
}
