package domain

import "time"

// DefaultAccountName is the name of the account created at signup.
const DefaultAccountName = "Main Account"

// Account is a named trading account owned by exactly one user.
type Account struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Color          string    `json:"color"`
	IsDefault      bool      `json:"isDefault"`
	InitialBalance float64   `json:"initialBalance"`
	CurrentBalance float64   `json:"currentBalance"`
	TradeCount     int64     `json:"tradeCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AccountPatch carries the editable account fields.
type AccountPatch struct {
	Name           *string  `json:"name"`
	Color          *string  `json:"color"`
	InitialBalance *float64 `json:"initialBalance"`
}
