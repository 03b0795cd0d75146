package models

import (
	"time"
)

type User struct {
	UserID           int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname        string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname        string     `gorm:"column:user_lname" json:"user_lname"`
	Email            string     `gorm:"column:email;unique" json:"email"`
	Password         string     `gorm:"column:password" json:"-"`
	InstitutionID    *int       `gorm:"column:institution_id" json:"institution_id,omitempty"`
	OrcidID          *string    `gorm:"column:orcid_id" json:"orcid_id,omitempty"`
	DateOfEmployment *time.Time `gorm:"column:date_of_employment" json:"date_of_employment,omitempty"`
	CreateAt         *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Roles       []Role       `gorm:"many2many:user_roles;foreignKey:UserID;joinForeignKey:user_id;References:RoleID;joinReferences:role_id" json:"roles,omitempty"`
	Institution *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

type Institution struct {
	InstitutionID int        `gorm:"primaryKey;column:institution_id" json:"institution_id"`
	Name          string     `gorm:"column:name" json:"name"`
	Country       *string    `gorm:"column:country" json:"country,omitempty"`
	RorID         *string    `gorm:"column:ror_id" json:"ror_id,omitempty"`
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt      *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (Institution) TableName() string {
	return "institutions"
}

// RoleNames flattens the preloaded role relation into plain role strings.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r.Role != "" {
			names = append(names, r.Role)
		}
	}
	return names
}
