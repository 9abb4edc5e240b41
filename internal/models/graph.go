package models

import (
	"fmt"
	"time"
)

// Follow is a directed edge from follower to followed.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_pair,priority:1" json:"followerId"`
	Follower   *User     `gorm:"foreignKey:FollowerID" json:"-"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_follow_pair,priority:2;index:idx_follows_followed" json:"followedId"`
	Followed   *User     `gorm:"foreignKey:FollowedID" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FollowStatus reports whether a viewer follows a subject.
type FollowStatus struct {
	IsFollowing bool `json:"isFollowing"`
}

// LikeTargetType tags the kind of content a like points at.
type LikeTargetType string

const (
	LikeTargetPost    LikeTargetType = "post"
	LikeTargetComment LikeTargetType = "comment"
)

// LikeTarget identifies a likeable post or comment.
type LikeTarget struct {
	Type LikeTargetType
	ID   uint
}

// PostTarget returns the like target for post id.
func PostTarget(id uint) LikeTarget {
	return LikeTarget{Type: LikeTargetPost, ID: id}
}

// CommentTarget returns the like target for comment id.
func CommentTarget(id uint) LikeTarget {
	return LikeTarget{Type: LikeTargetComment, ID: id}
}

// ParseLikeTarget validates a client supplied target.
func ParseLikeTarget(targetType string, id uint) (LikeTarget, error) {
	t := LikeTarget{Type: LikeTargetType(targetType), ID: id}
	if t.Type != LikeTargetPost && t.Type != LikeTargetComment {
		return LikeTarget{}, WrapDomainError(CodeValidation, ErrInvalidLikeTarget)
	}
	if id == 0 {
		return LikeTarget{}, NewValidationError("targetId is required")
	}
	return t, nil
}

func (t LikeTarget) String() string {
	return fmt.Sprintf("%s:%d", t.Type, t.ID)
}

// Resource names the target for NotFound messages.
func (t LikeTarget) Resource() string {
	if t.Type == LikeTargetComment {
		return "Comment"
	}
	return "Post"
}

// Like is one user's like on a post or comment. There is no foreign key on
// TargetID; post and comment deletion remove their likes explicitly.
type Like struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;uniqueIndex:idx_like_target,priority:1" json:"userId"`
	User       *User          `gorm:"foreignKey:UserID" json:"-"`
	TargetType LikeTargetType `gorm:"size:16;not null;uniqueIndex:idx_like_target,priority:2;index:idx_likes_lookup,priority:1" json:"targetType"`
	TargetID   uint           `gorm:"not null;uniqueIndex:idx_like_target,priority:3;index:idx_likes_lookup,priority:2" json:"targetId"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Target returns the tagged target of l.
func (l *Like) Target() LikeTarget {
	return LikeTarget{Type: l.TargetType, ID: l.TargetID}
}

// LikeState is the response of a like toggle or lookup.
type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}
