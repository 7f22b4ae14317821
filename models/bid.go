package models

// Bid is an immutable offer: the coins the bidder demands to perform the task.
// In a reverse auction a lower amount is more competitive.
type Bid struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"` // epoch ms
}
