package domain

import (
	"fmt"
	"time"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleStaff   Role = "Staff"
	RoleUser    Role = "User"
)

// Roles lists every role the system knows about
var Roles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleUser}

// ParseRole converts a free-text role into a Role.
// An empty string maps to RoleUser.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleUser, nil
	}
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleStaff, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// CanWriteTransactions reports whether the role may create, edit or delete transactions
func (r Role) CanWriteTransactions() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	case RoleStaff, RoleUser:
		return false
	}
	return false
}

// TransactionClass distinguishes goods-in from goods-out records
type TransactionClass string

const (
	ClassInbound  TransactionClass = "inbound"
	ClassOutbound TransactionClass = "outbound"
)

// Table returns the table that stores records of this class
func (c TransactionClass) Table() string {
	switch c {
	case ClassInbound:
		return "inv_transaksi_masuk"
	case ClassOutbound:
		return "inv_transaksi_keluar"
	}
	panic(fmt.Sprintf("unknown transaction class %q", string(c)))
}

// Code is the class marker embedded in human ids (CMM<code>DDMMYYnnnn)
func (c TransactionClass) Code() string {
	switch c {
	case ClassInbound:
		return "IN"
	case ClassOutbound:
		return "OUT"
	}
	panic(fmt.Sprintf("unknown transaction class %q", string(c)))
}

// Label is the human readable name used in messages
func (c TransactionClass) Label() string {
	if c == ClassOutbound {
		return "Transaksi Keluar"
	}
	return "Transaksi"
}

// Identity is the authenticated principal carried in access tokens
type Identity struct {
	UserID uint
	Name   string
	Email  string
	Role   Role
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}
