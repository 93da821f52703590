package entity

import (
	"database/sql"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Avatar       sql.NullString
	RefreshToken sql.NullString
	Confirmed    bool
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
