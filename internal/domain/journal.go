package domain

import "time"

// JournalEntry is a free-form, user-authored reflection that may reference
// some of the user's trades.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	EntryDate time.Time `json:"entryDate"`
	TradeIDs  []string  `json:"tradeIds"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
