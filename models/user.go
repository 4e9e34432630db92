package models

import "time"

const DefaultRole = "user"

type AppUser struct {
	ID           int64     `json:"id" bson:"_id" db:"id"`
	Email        string    `json:"email" bson:"email" db:"email"`
	PasswordHash string    `json:"-" bson:"password_hash" db:"password_hash"`
	Name         string    `json:"name" bson:"name" db:"name"`
	Role         string    `json:"role" bson:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at" db:"updated_at"`
}
