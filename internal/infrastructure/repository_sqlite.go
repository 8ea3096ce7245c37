package infrastructure

import (
	"errors"
	"fmt"

	"github.com/yourusername/dyt-client/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrRecordNotFound is returned when no ledger record matches
var ErrRecordNotFound = errors.New("task record not found")

// ledgerColumns are the columns FindAll accepts as filters
var ledgerColumns = map[string]bool{
	"task_id":     true,
	"batch_id":    true,
	"url":         true,
	"format_type": true,
	"quality":     true,
	"status":      true,
}

// SQLiteTaskRepository implements TaskRepository using SQLite
type SQLiteTaskRepository struct {
	db *gorm.DB
}

// NewSQLiteTaskRepository opens the ledger. domain.InMemoryLedger keeps it
// for the lifetime of the process.
func NewSQLiteTaskRepository(dbPath string) (*SQLiteTaskRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == domain.InMemoryLedger {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&domain.TaskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteTaskRepository{db: db}, nil
}

// Create creates a new record
func (r *SQLiteTaskRepository) Create(record *domain.TaskRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing record
func (r *SQLiteTaskRepository) Update(record *domain.TaskRecord) error {
	return r.db.Save(record).Error
}

// FindByID finds a record by ID
func (r *SQLiteTaskRepository) FindByID(id string) (*domain.TaskRecord, error) {
	return r.first("id = ?", id)
}

// FindByTaskID finds the record of a service task id
func (r *SQLiteTaskRepository) FindByTaskID(taskID string) (*domain.TaskRecord, error) {
	return r.first("task_id = ?", taskID)
}

func (r *SQLiteTaskRepository) first(query string, arg interface{}) (*domain.TaskRecord, error) {
	var record domain.TaskRecord
	err := r.db.Where(query, arg).Order("created_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByBatch finds the records of one playlist run in creation order
func (r *SQLiteTaskRepository) FindByBatch(batchID string) ([]*domain.TaskRecord, error) {
	var records []*domain.TaskRecord
	err := r.db.Where("batch_id = ?", batchID).Order("created_at ASC").Find(&records).Error
	return records, err
}

// FindAll finds all records with optional filters, newest first
func (r *SQLiteTaskRepository) FindAll(filters map[string]interface{}) ([]*domain.TaskRecord, error) {
	records := []*domain.TaskRecord{}
	query := r.db

	for key, value := range filters {
		if !ledgerColumns[key] {
			return nil, fmt.Errorf("unsupported filter %q", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// GetStats returns ledger statistics
func (r *SQLiteTaskRepository) GetStats() (*domain.TaskStats, error) {
	stats := &domain.TaskStats{}

	if err := r.db.Model(&domain.TaskRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.TaskStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.TaskRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.TaskPending:
			stats.Pending = sc.Count
		case domain.TaskStreaming:
			stats.Streaming = sc.Count
		case domain.TaskCompleted:
			stats.Completed = sc.Count
		case domain.TaskFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteTaskRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
