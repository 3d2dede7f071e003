package models

import (
	"fmt"
	"time"

	"cmm-stock/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"size:100;not null" json:"name"`
	Email     string      `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Role      domain.Role `gorm:"size:20;not null;default:'User'" json:"role"`
	Password  string      `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// Identity returns the claims view of the user
func (u *User) Identity() domain.Identity {
	return domain.Identity{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// ============================================================
// Inventory Tables
// ============================================================

// Transaction is one goods-in or goods-out record. Both classes share this
// shape; the table is picked per class (see domain.TransactionClass.Table).
type Transaction struct {
	ID            uint      `gorm:"column:idtransaksi;primaryKey;autoIncrement" json:"idtransaksi"`
	HumanID       string    `gorm:"column:idtransaksivarchar;size:32;not null;uniqueIndex" json:"idtransaksivarchar"`
	PickupDate    time.Time `gorm:"column:tanggal_pickup;type:date;not null" json:"tanggal_pickup"`
	PlateNumber   string    `gorm:"column:nopol;size:20;not null" json:"nopol"`
	Driver        string    `gorm:"column:driver;type:text;not null" json:"driver"`
	Source        string    `gorm:"column:sumber_barang;type:text;not null" json:"sumber_barang"`
	ItemName      string    `gorm:"column:nama_barang;type:text;not null" json:"nama_barang"`
	UnitOfMeasure string    `gorm:"column:uom;size:20;not null" json:"uom"`
	Quantity      int       `gorm:"column:qty;not null" json:"qty"`
}

// inboundTransaction and outboundTransaction only exist so that each table
// gets its own index names during migration.
type inboundTransaction struct{ Transaction }

func (inboundTransaction) TableName() string { return domain.ClassInbound.Table() }

type outboundTransaction struct{ Transaction }

func (outboundTransaction) TableName() string { return domain.ClassOutbound.Table() }

// TransactionSequence holds the next free daily sequence per id prefix
type TransactionSequence struct {
	Prefix    string    `gorm:"primaryKey;size:16" json:"prefix"`
	NextSeq   int       `gorm:"not null;default:0" json:"next_seq"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TransactionSequence) TableName() string {
	return "transaction_sequences"
}

// ============================================================
// Migration
// ============================================================

// AutoMigrate creates or updates every table the application owns
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&TransactionSequence{},
		&inboundTransaction{},
		&outboundTransaction{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
