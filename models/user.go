package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	Citizen Role = "citizen"
	Staff   Role = "staff"
	Admin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == Citizen || r == Staff || r == Admin
}

// IsStaff is true for staff and admin accounts.
func (r Role) IsStaff() bool {
	return r == Staff || r == Admin
}

// Department enum, only meaningful for staff and admin profiles
type Department string

const (
	PublicWorks    Department = "public-works"
	Sanitation     Department = "sanitation"
	Traffic        Department = "traffic"
	Utilities      Department = "utilities"
	Administration Department = "administration"
)

func (d Department) Valid() bool {
	switch d {
	case PublicWorks, Sanitation, Traffic, Utilities, Administration:
		return true
	}
	return false
}

// Identity is an authentication account. Its ID keys the user profile.
type Identity struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (i *Identity) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.PasswordHash = string(hashed)
	return nil
}

func (i *Identity) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(candidate))
	return err == nil
}

// User is the profile document stored under the identity id.
type User struct {
	ID         string     `bson:"_id" json:"id"`
	Name       string     `bson:"name" json:"name"`
	Email      string     `bson:"email" json:"email"`
	Role       Role       `bson:"role" json:"role"`
	Phone      string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string     `bson:"address,omitempty" json:"address,omitempty"`
	Department Department `bson:"department,omitempty" json:"department,omitempty"`
	EmployeeID string     `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ProfileFields are the caller-supplied parts of a profile. Citizens need
// contact details, staff and admins need their department.
type ProfileFields struct {
	Name       string     `json:"name" validate:"notblank"`
	Email      string     `json:"email"`
	Role       Role       `json:"role" validate:"required,role"`
	Phone      string     `json:"phone,omitempty" validate:"required_if=Role citizen"`
	Address    string     `json:"address,omitempty" validate:"required_if=Role citizen"`
	Department Department `json:"department,omitempty" validate:"required_unless=Role citizen,department"`
	EmployeeID string     `json:"employeeId,omitempty" validate:"required_unless=Role citizen"`
}

// RoleChange is an administrator's change of a user's role. Fields left
// empty keep the profile's current value.
type RoleChange struct {
	Role       Role       `json:"role"`
	Phone      string     `json:"phone,omitempty"`
	Address    string     `json:"address,omitempty"`
	Department Department `json:"department,omitempty"`
	EmployeeID string     `json:"employeeId,omitempty"`
}

// ProfilePatch lists the profile fields that may be changed after
// registration. Role and email are deliberately absent.
type ProfilePatch struct {
	Name       *string     `json:"name,omitempty"`
	Phone      *string     `json:"phone,omitempty"`
	Address    *string     `json:"address,omitempty"`
	Department *Department `json:"department,omitempty"`
	EmployeeID *string     `json:"employeeId,omitempty"`
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil && p.Department == nil && p.EmployeeID == nil
}

// Apply copies the non-nil patch fields onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.EmployeeID != nil {
		u.EmployeeID = *p.EmployeeID
	}
}
