// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a PoetPortal account. Users are never physically deleted.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `gorm:"size:100" json:"displayName,omitempty"`
	Bio         string    `gorm:"size:500" json:"bio,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"isAdmin"`
	IsSuspended bool      `gorm:"not null;default:false" json:"isSuspended"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserSummary is the public slice of a user embedded in posts, comments and
// follower lists.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Summary returns the public summary of u.
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserProfile is a user together with graph counts computed at read time.
type UserProfile struct {
	UserSummary
	Bio            string    `json:"bio,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	CreatedAt      time.Time `json:"createdAt"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
}
