// internal/domain/models/user.go
package models

import "time"

// User is an account in the external user table. This service only reads
// users: the username is the membership key checked against a Group's four
// tiers, and nothing here grants or revokes accounts.
type User struct {
	Username string `bson:"_id" json:"username"`
	FullName string `bson:"full_name" json:"full_name"`
	Role     string `bson:"role" json:"role"` // admin | instructor | student

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
