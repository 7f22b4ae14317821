// models/user.go
package models

// UserProfile is the identity and wallet state of a marketplace user.
// Balance only changes through operations that also append a Transaction.
type UserProfile struct {
	ID                   string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username             string  `gorm:"not null" json:"username"`
	Email                string  `gorm:"uniqueIndex;not null" json:"email"`
	Balance              int64   `gorm:"not null;default:0" json:"balance"`
	CompletedTasks       int64   `gorm:"not null;default:0" json:"completedTasks"`
	Rating               float64 `gorm:"not null;default:5" json:"rating"`
	SessionSeconds       int64   `gorm:"not null;default:0" json:"sessionSeconds"`
	TotalLifetimeSeconds int64   `gorm:"not null;default:0" json:"totalLifetimeSeconds"`
	IsAdmin              bool    `gorm:"not null;default:false" json:"isAdmin,omitempty"`
	ProfilePic           string  `gorm:"type:text" json:"profilePic,omitempty"`
	Version              int64   `gorm:"not null;default:0" json:"version"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
