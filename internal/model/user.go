package model

import "time"

type User struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Email      string    `bson:"email" json:"email"`
	Phone      string    `bson:"phone" json:"phone"`
	Verified   bool      `bson:"verified" json:"verified"`
	TrustScore int       `bson:"trust_score" json:"trustScore"`
	Blocked    []string  `bson:"blocked" json:"blockedUsers"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// HasBlocked reports whether u has blocked the given user.
func (u *User) HasBlocked(userID string) bool {
	for _, b := range u.Blocked {
		if b == userID {
			return true
		}
	}
	return false
}
