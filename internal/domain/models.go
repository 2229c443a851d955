package domain

import (
	"time"
)

// Link represents a shortened URL record with its visit history
type Link struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Hash        string     `json:"hash"`
	Protocol    string     `json:"protocol"`
	Domain      string     `json:"domain"`
	Path        string     `json:"path"`
	IsCustom    bool       `json:"isCustom"`
	RemoveToken string     `json:"-"` // deletion credential, never serialized
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	RemovedAt   *time.Time `json:"removedAt"`
	Visits      []Visit    `json:"visits"`
}

// Visit is a single resolution of a link
type Visit struct {
	Date time.Time `json:"date"`
}

// ShortenResult is returned when a link has been created
type ShortenResult struct {
	URL          string `json:"url"`
	ShortenedURL string `json:"shortenedUrl"`
	Hash         string `json:"hash"`
	RemoveURL    string `json:"removeUrl"`
}

// CreateLinkRequest represents the request to shorten a URL
type CreateLinkRequest struct {
	URL string `json:"url" validate:"required"`
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// RemoveResponse is the JSON body of a successful removal
type RemoveResponse struct {
	Result string `json:"result"`
}

// VisitsFromTimes builds a visit slice from ordered timestamps
func VisitsFromTimes(times []time.Time) []Visit {
	visits := make([]Visit, len(times))
	for i, t := range times {
		visits[i] = Visit{Date: t}
	}
	return visits
}
