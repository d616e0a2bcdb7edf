package models

import (
	"strconv"
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"isAdmin"`
	CreatedAt    string `json:"createdAt"`
}

func (u *User) Fields() map[string]string {
	return map[string]string{
		"id":        u.ID,
		"email":     u.Email,
		"password":  u.PasswordHash,
		"isAdmin":   strconv.FormatBool(u.IsAdmin),
		"createdAt": u.CreatedAt,
	}
}

func UserFromFields(email string, f map[string]string) *User {
	return &User{
		ID:           f["id"],
		Email:        email,
		PasswordHash: f["password"],
		IsAdmin:      f["isAdmin"] == "true",
		CreatedAt:    f["createdAt"],
	}
}
