package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	CreatedBy   uint64     `gorm:"not null;index" json:"created_by"`
	AssignedTo  *uint64    `gorm:"index" json:"assigned_to"`
	AssignedAt  *time.Time `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Creator  User       `gorm:"foreignKey:CreatedBy;constraint:OnDelete:CASCADE" json:"-"`
	Assignee *User      `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"-"`
	Files    []TaskFile `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}
