package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the ledger status of one download attempt
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskStreaming TaskStatus = "streaming"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskRecord is one download attempt of the session
type TaskRecord struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	TaskID       string     `json:"task_id,omitempty" gorm:"index"`
	BatchID      string     `json:"batch_id,omitempty" gorm:"index"`
	URL          string     `json:"url" gorm:"not null"`
	Title        string     `json:"title,omitempty"`
	FormatType   FormatType `json:"format_type" gorm:"not null"`
	Quality      string     `json:"quality"`
	Status       TaskStatus `json:"status" gorm:"not null;index"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Filename     string     `json:"filename,omitempty"`
	SavedPath    string     `json:"saved_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewTaskRecord creates a pending record for a download request
func NewTaskRecord(req DownloadRequest, title, batchID string) *TaskRecord {
	now := time.Now()
	return &TaskRecord{
		ID:         uuid.New().String(),
		BatchID:    batchID,
		URL:        req.URL,
		Title:      title,
		FormatType: req.FormatType,
		Quality:    req.Quality,
		Status:     TaskPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkStreaming records the task id the service assigned
func (r *TaskRecord) MarkStreaming(taskID string) {
	r.TaskID = taskID
	r.Status = TaskStreaming
	r.UpdatedAt = time.Now()
}

// MarkCompleted records the produced filename
func (r *TaskRecord) MarkCompleted(filename string) {
	r.Status = TaskCompleted
	r.Filename = filename
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed records the failure message
func (r *TaskRecord) MarkFailed(err error) {
	r.Status = TaskFailed
	r.ErrorMessage = UserMessage(err)
	r.UpdatedAt = time.Now()
}

// MarkSaved records where the file was exported
func (r *TaskRecord) MarkSaved(path string) {
	r.SavedPath = path
	r.UpdatedAt = time.Now()
}

// IsTerminal checks if the attempt has ended
func (r *TaskRecord) IsTerminal() bool {
	return r.Status == TaskCompleted || r.Status == TaskFailed
}
