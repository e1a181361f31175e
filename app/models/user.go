// Package models defines account tier and usage tracking fields.
package models

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Profile carries the caller's entitlement tier.
type Profile struct {
	ID               string    `gorm:"primaryKey;type:text" json:"id"`
	Email            *string   `json:"email,omitempty"`
	Tier             Tier      `gorm:"type:text;not null;default:free" json:"tier"`
	StripeCustomerID *string   `gorm:"type:text;uniqueIndex" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Usage is the per-user counter of consumed plan requests.
type Usage struct {
	UserID        string    `gorm:"primaryKey;type:text" json:"user_id"`
	TotalRequests int       `gorm:"not null;default:0" json:"total_requests"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Usage) TableName() string { return "usage" }

// Account is the read model returned by GET /me.
type Account struct {
	UserID        string `json:"user_id"`
	Tier          Tier   `json:"tier"`
	TotalRequests int    `json:"total_requests"`
	Limit         *int   `json:"limit"`
	Remaining     *int   `json:"remaining"`
}
