// models/transaction.go
package models

// TransactionType values are persisted verbatim.
type TransactionType string

const (
	TransactionEarning       TransactionType = "EARNING"
	TransactionDeposit       TransactionType = "DEPOSIT"
	TransactionWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionBidHold       TransactionType = "BID_HOLD"
	TransactionTaskPayment   TransactionType = "TASK_PAYMENT"
	TransactionSessionMining TransactionType = "SESSION_MINING"
	TransactionLoginFee      TransactionType = "LOGIN_FEE"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "Completed"
	TransactionPending   TransactionStatus = "Pending"
	TransactionFailed    TransactionStatus = "Failed"
)

// Transaction is an append-only ledger entry. Only Status is ever updated,
// and only from Pending.
type Transaction struct {
	ID          string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID      string            `gorm:"type:varchar(64);index" json:"userId,omitempty"`
	UserName    string            `json:"userName,omitempty"`
	Date        string            `gorm:"type:varchar(40);not null" json:"date"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Type        TransactionType   `gorm:"type:varchar(20);index;not null" json:"type"`
	Description string            `gorm:"type:text" json:"description"`
	Status      TransactionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	UTR         string            `gorm:"type:varchar(64)" json:"utr,omitempty"`
	TaskID      string            `gorm:"type:varchar(64);index" json:"taskId,omitempty"`
	RecordedAt  int64             `gorm:"index;not null" json:"recordedAt"` // epoch ms, ledger order
}

func (Transaction) TableName() string {
	return "transactions"
}
