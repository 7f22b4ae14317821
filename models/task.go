// models/task.go
package models

import "time"

// TaskStatus values are persisted verbatim; existing records depend on the spelling.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "Open"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusEvaluating TaskStatus = "Evaluating"
	TaskStatusAwarded    TaskStatus = "Awarded"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusCancelled  TaskStatus = "Cancelled"
)

// SelectionMethod governs who may set the winner of a task.
type SelectionMethod string

const (
	SelectionManual    SelectionMethod = "Manual"
	SelectionAutomatic SelectionMethod = "Automatic"
)

type Difficulty string

const (
	DifficultyBasic        Difficulty = "Basic"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyHighValue    Difficulty = "High-Value"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusEvaluating, TaskStatusAwarded, TaskStatusCancelled},
	TaskStatusEvaluating: {TaskStatusInProgress, TaskStatusAwarded, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusAwarded:    {TaskStatusCompleted, TaskStatusCancelled},
}

// CanTransition reports whether a task may move from one status to another.
// Completed and Cancelled are terminal.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// Valid reports whether s is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBasic, DifficultyIntermediate, DifficultyHighValue:
		return true
	}
	return false
}

// Task is a unit of work offered for reverse-auction bidding.
// Bids are stored newest first and never mutated once recorded.
type Task struct {
	ID              string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Slug            string          `gorm:"type:varchar(160);index" json:"slug,omitempty"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Reward          int64           `gorm:"not null" json:"reward"`
	Difficulty      Difficulty      `gorm:"type:varchar(16)" json:"difficulty"`
	EstimatedTime   string          `json:"estimatedTime"`
	CreatorID       string          `gorm:"type:varchar(64);index;not null" json:"creatorId"`
	CreatorName     string          `json:"creatorName,omitempty"`
	IsAuction       bool            `gorm:"not null;default:false" json:"isAuction"`
	SelectionMethod SelectionMethod `gorm:"type:varchar(16)" json:"selectionMethod,omitempty"`
	Status          TaskStatus      `gorm:"type:varchar(16);index;not null" json:"status"`
	HighestBid      int64           `json:"highestBid,omitempty"`
	BidCount        int             `gorm:"not null;default:0" json:"bidCount"`
	Bids            []Bid           `gorm:"type:jsonb;serializer:json" json:"bids"`
	WinnerID        string          `gorm:"type:varchar(64);index" json:"winnerId,omitempty"`
	WinnerName      string          `json:"winnerName,omitempty"`
	AuctionEndTime  *int64          `gorm:"index" json:"auctionEndTime,omitempty"` // epoch ms
	Deadline        *int64          `json:"deadline,omitempty"`                    // epoch ms, advisory
	CreatedAt       int64           `gorm:"autoCreateTime:false;not null" json:"createdAt"`
	IsCompleted     bool            `gorm:"not null;default:false" json:"isCompleted"`
	CancelReason    string          `gorm:"type:text" json:"cancelReason,omitempty"`
	Version         int64           `gorm:"not null;default:0" json:"version"`
}

func (Task) TableName() string {
	return "tasks"
}

// RefreshCachedFields re-derives BidCount and IsCompleted from their sources.
// Every write path calls it before persisting.
func (t *Task) RefreshCachedFields() {
	t.BidCount = len(t.Bids)
	t.IsCompleted = t.Status == TaskStatusCompleted
}

// AddBid prepends b and updates the cached bid fields.
func (t *Task) AddBid(b Bid) {
	bids := make([]Bid, 0, len(t.Bids)+1)
	bids = append(bids, b)
	t.Bids = append(bids, t.Bids...)
	t.HighestBid = b.Amount
	t.RefreshCachedFields()
}

// SetWinner records b as the winning bid.
func (t *Task) SetWinner(b Bid) {
	t.WinnerID = b.UserID
	t.WinnerName = b.UserName
	t.HighestBid = b.Amount
}

// FindBid returns the bid with the given id.
func (t *Task) FindBid(id string) (Bid, bool) {
	for _, b := range t.Bids {
		if b.ID == id {
			return b, true
		}
	}
	return Bid{}, false
}

// LowestBid returns the most competitive bid: the lowest amount, with ties
// going to the earliest submission (by timestamp, then by list position).
func (t *Task) LowestBid() (Bid, bool) {
	if len(t.Bids) == 0 {
		return Bid{}, false
	}
	best := t.Bids[len(t.Bids)-1]
	for i := len(t.Bids) - 2; i >= 0; i-- {
		b := t.Bids[i]
		if b.Amount < best.Amount || (b.Amount == best.Amount && b.Timestamp < best.Timestamp) {
			best = b
		}
	}
	return best, true
}

// AuctionClosed reports whether the auction deadline has passed at now.
func (t *Task) AuctionClosed(now time.Time) bool {
	return t.IsAuction && t.AuctionEndTime != nil && *t.AuctionEndTime < now.UnixMilli()
}

// AuctionExpired reports whether the task is an open auction whose deadline
// has passed and which is therefore due for automatic resolution.
func (t *Task) AuctionExpired(now time.Time) bool {
	return t.Status == TaskStatusOpen && t.AuctionClosed(now)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t Task) Clone() Task {
	out := t
	if t.Bids != nil {
		out.Bids = make([]Bid, len(t.Bids))
		copy(out.Bids, t.Bids)
	}
	if t.AuctionEndTime != nil {
		v := *t.AuctionEndTime
		out.AuctionEndTime = &v
	}
	if t.Deadline != nil {
		v := *t.Deadline
		out.Deadline = &v
	}
	return out
}
