package user

import "time"

// Account holds login credentials. It never leaves the server.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
