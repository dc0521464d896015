package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	UserStatusNormal = 0
	UserStatusMuted  = 1
	UserStatusBanned = 2
)

// User is owned by the account subsystem and never written from here.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"not null" json:"username"`
	Email         string     `gorm:"uniqueIndex;not null" json:"-"`
	Avatar        string     `gorm:"default:🌱" json:"avatar"`                       // emoji 头像
	Role          string     `gorm:"size:20;default:'member';not null" json:"role"` // member, admin
	IsActive      bool       `gorm:"not null;default:true" json:"isActive"`
	Status        int        `gorm:"default:0" json:"status"` // 0:正常, 1:禁言, 2:封禁
	PunishExpires *time.Time `json:"punishExpires"`           // 惩罚到期时间
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanParticipate reports whether the account may write comments at now. A
// mute whose expiry has passed no longer applies.
func (u *User) CanParticipate(now time.Time) bool {
	if !u.IsActive {
		return false
	}
	switch u.Status {
	case UserStatusBanned:
		return false
	case UserStatusMuted:
		return u.PunishExpires != nil && now.After(*u.PunishExpires)
	default:
		return true
	}
}

func (u *User) Summary() *AuthorSummary {
	return &AuthorSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
