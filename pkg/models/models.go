package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"type:varchar(191);unique_index;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Filename    string    `gorm:"type:varchar(191);unique_index;not null" json:"filename"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Like is unique per (user, video).
type Like struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    uint      `gorm:"unique_index:idx_likes_user_video;not null" json:"user_id"`
	VideoID   uint      `gorm:"unique_index:idx_likes_user_video;index;not null" json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	VideoID   uint      `gorm:"index;not null" json:"video_id"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session backs the database session store. It holds identity only, never
// the password hash.
type Session struct {
	ID        string    `gorm:"primary_key;type:varchar(64)" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Username  string    `json:"username"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// VideoListing is a video joined with its owner's username.
type VideoListing struct {
	Video
	Username string `json:"username"`
}

// CommentListing is a comment joined with its author's username.
type CommentListing struct {
	Comment
	Username string `json:"username"`
}

type VideoDetail struct {
	Video    VideoListing     `json:"video"`
	Comments []CommentListing `json:"comments"`
	Likes    int              `json:"likes"`
}
