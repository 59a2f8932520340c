package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// dueSoonWindow marks open tasks due within this window.
const dueSoonWindow = 48 * time.Hour

const (
	// maxSummaryBytes keeps a summary inside one Telegram message.
	maxSummaryBytes     = 3900
	maxDescriptionRunes = 200
)

// ReminderService builds human-readable summaries of a user's open tasks.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// DailySummary lists the user's open tasks, earliest due date first, as
// Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	open := false
	tasks, err := s.taskRepo.List(ctx, user.ID, model.TaskFilter{Completed: &open, Sort: model.SortDueDate})
	if err != nil {
		return "", err
	}

	var overdue int
	for _, task := range tasks {
		if task.IsOverdue(now) {
			overdue++
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	if len(tasks) == 0 {
		builder.WriteString("— no open tasks\n")
		return strings.TrimSpace(builder.String()), nil
	}

	builder.WriteString(fmt.Sprintf("🔥 <b>Open tasks: %d</b>", len(tasks)))
	if overdue > 0 {
		builder.WriteString(fmt.Sprintf(" · overdue: %d", overdue))
	}
	builder.WriteString("\n")
	for i, task := range tasks {
		line := FormatTask(task, now)
		if builder.Len()+len(line) > maxSummaryBytes {
			builder.WriteString(fmt.Sprintf("… and %d more\n", len(tasks)-i))
			break
		}
		builder.WriteString(line)
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTask renders one task line as Telegram HTML.
func FormatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.IsCompleted:
		icon = "✅"
	case task.DueDate != nil && now.After(*task.DueDate):
		icon = "⚠️"
	case task.DueDate != nil && task.DueDate.Sub(now) <= dueSoonWindow:
		icon = "⏳"
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s #%d %s", icon, task.ID, title))

	if name := strings.TrimSpace(task.CategoryName()); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" ❗")
	}

	if task.DueDate != nil && !task.IsCompleted {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d d left", d.Format("2006-01-02"), daysLeft))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(truncate(strings.TrimSpace(task.Description), maxDescriptionRunes))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
