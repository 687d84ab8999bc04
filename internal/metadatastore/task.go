package metadatastore

import (
	"database/sql"
	"fmt"

	"github.com/northbound-system/kb-ingest/internal/apierr"
)

// Task status values (spec §2's Task lifecycle).
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task tracks the progress of one ingestion request (a single file, a ZIP,
// or an object-store prefix) against a knowledge base.
type Task struct {
	ID              string
	KnowledgeBaseID string
	Status          string
	Progress        float64
	LatestMessage   string
	CreatedAt       string
	UpdatedAt       string
}

// CreateTask inserts a task row in TaskStatusPending state with zero
// progress.
func (s *Store) CreateTask(t Task) error {
	if t.ID == "" || t.KnowledgeBaseID == "" {
		return fmt.Errorf("%w: id and knowledge_base_id are required", apierr.ErrValidation)
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	now := nowUTC()
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, knowledge_base_id, status, progress, latest_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.KnowledgeBaseID, t.Status, t.Progress, t.LatestMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask fetches a single task by id.
func (s *Store) GetTask(id string) (Task, error) {
	row := s.db.QueryRow(
		`SELECT id, knowledge_base_id, status, progress, latest_message, created_at, updated_at
		 FROM tasks WHERE id = ?`, id,
	)
	var t Task
	err := row.Scan(&t.ID, &t.KnowledgeBaseID, &t.Status, &t.Progress, &t.LatestMessage, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return Task{}, fmt.Errorf("task %s: %w", id, apierr.ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns every task registered under a knowledge base.
func (s *Store) ListTasks(knowledgeBaseID string) ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT id, knowledge_base_id, status, progress, latest_message, created_at, updated_at
		 FROM tasks WHERE knowledge_base_id = ? ORDER BY created_at ASC`, knowledgeBaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.KnowledgeBaseID, &t.Status, &t.Progress, &t.LatestMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskProgress advances a task's status, progress, and latest
// message. Progress is monotonic: a write with a lower progress than what
// is already stored is ignored (nothing is written and nil is returned),
// since an in-flight worker's late update
// must never un-advance a task another goroutine has already moved further
// (spec §2's progress monotonicity invariant).
func (s *Store) UpdateTaskProgress(id string, status string, progress float64, message string) error {
	return s.withTx(func(tx *sql.Tx) error {
		var current float64
		if err := tx.QueryRow(`SELECT progress FROM tasks WHERE id = ?`, id).Scan(&current); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("task %s: %w", id, apierr.ErrNotFound)
			}
			return fmt.Errorf("failed to read current task progress: %w", err)
		}
		if progress < current {
			return nil
		}
		_, err := tx.Exec(
			`UPDATE tasks SET status = ?, progress = ?, latest_message = ?, updated_at = ? WHERE id = ?`,
			status, progress, message, nowUTC(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update task progress: %w", err)
		}
		return nil
	})
}
