package gormstore

import "time"

// userRecord is the users table row.
type userRecord struct {
	ID                  string  `gorm:"primaryKey;type:varchar(36)"`
	Email               string  `gorm:"uniqueIndex;not null"`
	Name                string  `gorm:"not null;default:''"`
	PasswordHash        string  `gorm:"not null"`
	Role                string  `gorm:"not null"`
	TwoFactorEnabled    bool    `gorm:"not null;default:false"`
	TwoFactorSecret     string  `gorm:"not null;default:''"`
	ResetTokenHash      *string `gorm:"uniqueIndex"`
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`

	Permissions []permissionRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRecord) TableName() string { return "users" }

// permissionRecord is one grant in the user_permissions table.
type permissionRecord struct {
	UserID     string `gorm:"primaryKey;type:varchar(36)"`
	Permission string `gorm:"primaryKey"`
}

func (permissionRecord) TableName() string { return "user_permissions" }
