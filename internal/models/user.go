// Package models declares the row structs shared by repositories and
// services. Timestamps are kept as store-native datetime strings (the format
// produced by SQLite's datetime('now')); nullable columns use pointers.
package models

type User struct {
	UserID      string
	CreatedAt   string
	LastLoginAt *string
}
