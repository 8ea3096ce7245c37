package domain

// TaskRepository defines the interface for the session's download ledger
type TaskRepository interface {
	// Create creates a new record
	Create(record *TaskRecord) error

	// Update updates an existing record
	Update(record *TaskRecord) error

	// FindByID finds a record by ID
	FindByID(id string) (*TaskRecord, error)

	// FindByTaskID finds the record of a service task id
	FindByTaskID(taskID string) (*TaskRecord, error)

	// FindByBatch finds the records of one playlist run in creation order
	FindByBatch(batchID string) ([]*TaskRecord, error)

	// FindAll finds all records with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*TaskRecord, error)

	// GetStats returns ledger statistics
	GetStats() (*TaskStats, error)
}

// TaskStats represents ledger statistics
type TaskStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Streaming int64 `json:"streaming"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
