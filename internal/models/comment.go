package models

import "time"

// MaxReplyDepth is the deepest level at which a comment may still be
// answered from the UI. Roots are depth 1. Storage itself is not limited.
const MaxReplyDepth = 3

// Comment replies to a post (ParentID nil) or to another comment of the
// same post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parentId"`
	Parent    *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// CommentNode is one comment in an assembled thread.
type CommentNode struct {
	ID         uint           `json:"id"`
	PostID     uint           `json:"postId"`
	ParentID   *uint          `json:"parentId"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"createdAt"`
	Author     UserSummary    `json:"author"`
	Depth      int            `json:"depth"`
	CanReply   bool           `json:"canReply"`
	LikesCount int64          `json:"likesCount"`
	Liked      bool           `json:"liked"`
	Replies    []*CommentNode `json:"replies"`
}
