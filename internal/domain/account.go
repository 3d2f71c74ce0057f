package domain

import "time"

// Account identifies a demo trading account. The balance itself lives in the
// ledger; an account owns exactly one ledger entry set and one slice of the
// position book for its whole lifetime.
type Account struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
