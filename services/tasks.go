// services/tasks.go
package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coin-task-desk/models"
	"coin-task-desk/stores"

	"github.com/gosimple/slug"
)

// TaskDraft carries the creator-editable fields of a task.
type TaskDraft struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Reward          int64                  `json:"reward"`
	Difficulty      models.Difficulty      `json:"difficulty"`
	EstimatedTime   string                 `json:"estimatedTime"`
	IsAuction       bool                   `json:"isAuction"`
	SelectionMethod models.SelectionMethod `json:"selectionMethod"`
	AuctionEndTime  *int64                 `json:"auctionEndTime"`
	Deadline        *int64                 `json:"deadline"`
}

// TaskPatch lists the fields a creator may change before the first bid.
type TaskPatch struct {
	Title         *string            `json:"title"`
	Description   *string            `json:"description"`
	Reward        *int64             `json:"reward"`
	Difficulty    *models.Difficulty `json:"difficulty"`
	EstimatedTime *string            `json:"estimatedTime"`
	Deadline      *int64             `json:"deadline"`
}

func validateDraft(op string, d *TaskDraft, nowMs int64) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return newError(KindInvalidInput, op, "title is required")
	}
	if d.Reward <= 0 {
		return newError(KindInvalidInput, op, "reward must be positive")
	}
	if d.Difficulty == "" {
		d.Difficulty = models.DifficultyBasic
	}
	if !d.Difficulty.Valid() {
		return newError(KindInvalidInput, op, "unknown difficulty %q", d.Difficulty)
	}
	switch d.SelectionMethod {
	case "":
		if d.IsAuction {
			d.SelectionMethod = models.SelectionAutomatic
		} else {
			d.SelectionMethod = models.SelectionManual
		}
	case models.SelectionManual, models.SelectionAutomatic:
	default:
		return newError(KindInvalidInput, op, "unknown selection method %q", d.SelectionMethod)
	}
	if !d.IsAuction {
		if d.SelectionMethod == models.SelectionAutomatic {
			return newError(KindInvalidInput, op, "automatic selection requires an auction")
		}
		d.AuctionEndTime = nil
		return nil
	}
	if d.AuctionEndTime == nil {
		if d.SelectionMethod == models.SelectionAutomatic {
			return newError(KindInvalidInput, op, "automatic auctions need an auctionEndTime")
		}
		return nil
	}
	if *d.AuctionEndTime <= nowMs {
		return newError(KindInvalidInput, op, "auctionEndTime must be in the future")
	}
	return nil
}

// CreateTask publishes a new Open task offered by creatorID.
func (e *Engine) CreateTask(ctx context.Context, creatorID string, draft TaskDraft) (*models.Task, error) {
	const op = "createTask"
	now := e.now()
	if err := validateDraft(op, &draft, now.UnixMilli()); err != nil {
		return nil, err
	}

	var task *models.Task
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		creator, err := loadProfile(ctx, tx, op, creatorID)
		if err != nil {
			return err
		}
		id := e.newID()
		task = &models.Task{
			ID:              id,
			Slug:            taskSlug(draft.Title, id),
			Title:           draft.Title,
			Description:     strings.TrimSpace(draft.Description),
			Reward:          draft.Reward,
			Difficulty:      draft.Difficulty,
			EstimatedTime:   draft.EstimatedTime,
			CreatorID:       creator.ID,
			CreatorName:     creator.Username,
			IsAuction:       draft.IsAuction,
			SelectionMethod: draft.SelectionMethod,
			Status:          models.TaskStatusOpen,
			Bids:            []models.Bid{},
			AuctionEndTime:  draft.AuctionEndTime,
			Deadline:        draft.Deadline,
			CreatedAt:       now.UnixMilli(),
		}
		task.RefreshCachedFields()
		return tx.Tasks().Upsert(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[ENGINE] 📌 Task published: %s %q reward=%d auction=%t", task.ID, task.Title, task.Reward, task.IsAuction)
	return task, nil
}

func taskSlug(title, id string) string {
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return slug.Make(title + " " + suffix)
}

// UpdateTaskDetails applies a creator's edits. Only allowed while the task is
// Open and nobody has bid yet.
func (e *Engine) UpdateTaskDetails(ctx context.Context, actorID, taskID string, patch TaskPatch) (*models.Task, error) {
	const op = "updateTaskDetails"

	var task *models.Task
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		if t.CreatorID != actorID {
			return newError(KindForbidden, op, "only the creator can edit task %s", taskID)
		}
		if t.Status != models.TaskStatusOpen || len(t.Bids) > 0 {
			return newError(KindInvalidState, op, "task %s can no longer be edited", taskID)
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return newError(KindInvalidInput, op, "title is required")
			}
			t.Title = title
			t.Slug = taskSlug(title, t.ID)
		}
		if patch.Description != nil {
			t.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Reward != nil {
			if *patch.Reward <= 0 {
				return newError(KindInvalidInput, op, "reward must be positive")
			}
			t.Reward = *patch.Reward
		}
		if patch.Difficulty != nil {
			if !patch.Difficulty.Valid() {
				return newError(KindInvalidInput, op, "unknown difficulty %q", *patch.Difficulty)
			}
			t.Difficulty = *patch.Difficulty
		}
		if patch.EstimatedTime != nil {
			t.EstimatedTime = *patch.EstimatedTime
		}
		if patch.Deadline != nil {
			d := *patch.Deadline
			t.Deadline = &d
		}
		t.RefreshCachedFields()
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// MarkEvaluating closes bidding so the creator can review offers. Tasks with
// automatic selection are resolved by the sweep and cannot be reviewed.
func (e *Engine) MarkEvaluating(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	const op = "markEvaluating"

	var task *models.Task
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		if t.CreatorID != actorID {
			return newError(KindForbidden, op, "only the creator can close bidding on task %s", taskID)
		}
		if t.Status != models.TaskStatusOpen {
			return newError(KindInvalidState, op, "task %s is %s", taskID, t.Status)
		}
		if t.SelectionMethod == models.SelectionAutomatic {
			return newError(KindInvalidState, op, "task %s is awarded automatically when its auction ends", taskID)
		}
		t.Status = models.TaskStatusEvaluating
		t.RefreshCachedFields()
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (e *Engine) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	return loadTask(ctx, e.store, "getTask", taskID)
}

// ListTasks returns tasks newest first, optionally filtered by status.
func (e *Engine) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	all, err := e.store.Tasks().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listTasks: %w", err)
	}
	if status == "" {
		return all, nil
	}
	out := make([]models.Task, 0, len(all))
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}
