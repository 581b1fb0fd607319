package model

import (
	"time"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	TotalCredits int64     `json:"total_credits" db:"total_credits"`
	FreeCredits  int64     `json:"free_credits" db:"free_credits"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	ReferralCode string    `json:"referral_code" db:"referral_code"`
	ReferredBy   *int64    `json:"referred_by,omitempty" db:"referred_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PurchasedCredits is the unrestricted portion of the balance. Free credits
// are reserved for email-marketing features and are never spent by the paid
// AI paths, so eligibility is decided against this value.
func (u *User) PurchasedCredits() int64 {
	purchased := u.TotalCredits - u.FreeCredits
	if purchased < 0 {
		return 0
	}
	return purchased
}
