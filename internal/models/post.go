package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds the title derived from a post's first line.
const MaxTitleLength = 50

// Post is a top-level content unit owned by its author.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Title     string    `gorm:"size:50;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// DeriveTitle returns the first line of content truncated to MaxTitleLength
// characters.
func DeriveTitle(content string) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if utf8.RuneCountInString(line) <= MaxTitleLength {
		return line
	}
	return string([]rune(line)[:MaxTitleLength])
}

// PostView is a post assembled with its author, engagement counts and
// comment forest.
type PostView struct {
	ID            uint           `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	CreatedAt     time.Time      `json:"createdAt"`
	Author        UserSummary    `json:"author"`
	LikesCount    int64          `json:"likesCount"`
	Liked         bool           `json:"liked"`
	CommentsCount int            `json:"commentsCount"`
	Comments      []*CommentNode `json:"comments"`
}
