package models

import (
	"fmt"
	"time"
)

// Role names. Roles gate route groups; the core engines receive the acting
// user explicitly and do not read role state themselves.
const (
	RoleProponent   = "proponent"
	RoleReviewer    = "reviewer"
	RoleChairperson = "chairperson"
)

// User is an account row. Users live in a relational table rather than the
// record store; identity is ambient infrastructure, not workflow state.
type User struct {
	UserID    int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname string     `gorm:"column:user_lname" json:"user_lname"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	RoleID    int        `gorm:"column:role_id" json:"role_id"`
	CreateAt  *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

// FullName joins first and last name for display and code generation.
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.UserFname, u.UserLname)
}

// StoreID is the user's identity in record-store documents.
func (u *User) StoreID() string {
	return fmt.Sprintf("%d", u.UserID)
}
