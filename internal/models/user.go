package models

import "time"

// UserRole separates ordinary users from platform employees.
type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleEmployee UserRole = "employee"
)

// User is an identity record. Password hashes never leave the repository
// layer except for login verification.
type User struct {
	ID           string   `db:"id" json:"id"`
	CypherTag    string   `db:"cypher_tag" json:"cypher_tag"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Role         UserRole `db:"role" json:"role"`

	Bio                  string `db:"bio" json:"bio"`
	Avatar               string `db:"avatar" json:"avatar"`
	NotificationsEnabled bool   `db:"notifications_enabled" json:"notifications_enabled"`
	Online               bool   `db:"online" json:"online"`

	FreeChannels           int  `db:"free_channels" json:"free_channels"`
	FreeGroups             int  `db:"free_groups" json:"free_groups"`
	ChannelPaymentVerified bool `db:"channel_payment_verified" json:"channel_payment_verified"`
	GroupPaymentVerified   bool `db:"group_payment_verified" json:"group_payment_verified"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
