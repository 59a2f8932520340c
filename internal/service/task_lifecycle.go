package service

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"task-tracker/internal/model"
)

const editLockedMessage = "task is completed; reopen it before editing"

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title         *string
	Description   *string
	Priority      *string
	CategoryID    *uint
	ClearCategory bool
	DueDate       *time.Time
	ClearDueDate  bool
	IsCompleted   *bool
}

// editedFields lists the non-completion fields present in the patch.
func (p TaskPatch) editedFields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.CategoryID != nil || p.ClearCategory {
		fields = append(fields, "category")
	}
	if p.DueDate != nil || p.ClearDueDate {
		fields = append(fields, "due_date")
	}
	sort.Strings(fields)
	return fields
}

// checkTransition enforces edit lockout. A completed task accepts a patch
// carrying other fields only when the same patch reopens it.
func checkTransition(task *model.Task, patch TaskPatch) error {
	if !task.IsCompleted {
		return nil
	}
	if patch.IsCompleted != nil && !*patch.IsCompleted {
		return nil
	}
	fields := patch.editedFields()
	if len(fields) == 0 {
		return nil
	}
	verr := &ValidationError{locked: true}
	for _, field := range fields {
		verr.Add(field, editLockedMessage)
	}
	return verr
}

// validatePatch checks the field-level rules that do not need storage.
// Category ownership is checked by the caller.
func validatePatch(patch TaskPatch, now time.Time, verr *ValidationError) {
	if patch.Title != nil {
		validateTitle(*patch.Title, verr)
	}
	if patch.Priority != nil {
		if _, ok := model.ParsePriority(*patch.Priority); !ok {
			verr.Add("priority", "must be one of low, medium, high")
		}
	}
	if patch.DueDate != nil {
		validateDueDate(*patch.DueDate, now, verr)
	}
}

func validateTitle(title string, verr *ValidationError) {
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "":
		verr.Add("title", "is required")
	case utf8.RuneCountInString(trimmed) > model.MaxTitleLength:
		verr.Add("title", "must be at most 200 characters")
	}
}

// validateDueDate rejects due dates that are not strictly after now.
func validateDueDate(due, now time.Time, verr *ValidationError) {
	if !due.After(now) {
		verr.Add("due_date", "must be in the future")
	}
}

// applyPatch copies the patch onto task. The completion flag and
// completed_at always change together.
func applyPatch(task *model.Task, patch TaskPatch, now time.Time) {
	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority, _ = model.ParsePriority(*patch.Priority)
	}
	switch {
	case patch.ClearCategory:
		task.CategoryID = nil
	case patch.CategoryID != nil:
		id := *patch.CategoryID
		task.CategoryID = &id
	}
	switch {
	case patch.ClearDueDate:
		task.DueDate = nil
	case patch.DueDate != nil:
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.IsCompleted != nil && *patch.IsCompleted != task.IsCompleted {
		setCompleted(task, *patch.IsCompleted, now)
	}
	task.UpdatedAt = now
}

func setCompleted(task *model.Task, completed bool, now time.Time) {
	task.IsCompleted = completed
	if completed {
		at := now
		task.CompletedAt = &at
	} else {
		task.CompletedAt = nil
	}
}
