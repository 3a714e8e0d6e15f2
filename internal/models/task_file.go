package models

import "time"

// TaskFile is evidence attached to a task when it is completed. Rows are
// never updated after insert.
type TaskFile struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	TaskID     uint64    `gorm:"not null;index" json:"task_id"`
	Filename   string    `gorm:"type:varchar(255);not null" json:"filename"`
	StorageKey string    `gorm:"type:varchar(255);not null" json:"-"`
	StorageURL string    `gorm:"type:varchar(1024);not null" json:"storage_url"`
	UploadedBy *uint64   `gorm:"index" json:"uploaded_by"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`

	Uploader *User `gorm:"foreignKey:UploadedBy;constraint:OnDelete:SET NULL" json:"-"`
}
