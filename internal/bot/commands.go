package bot

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-tracker/internal/model"
	"task-tracker/internal/service"
)

const (
	maxListButtons = 20
	buttonTitleLen = 24
	// maxListBytes keeps a task list under Telegram's 4096 character limit.
	// Byte length never undercounts the characters Telegram sees.
	maxListBytes = 3900
	dueDateLayout  = "2006-01-02"
)

// parseQueryArgs turns "priority=high search=buy milk" into query values.
// A word without '=' continues the previous value.
func parseQueryArgs(args string) url.Values {
	values := url.Values{}
	var key string
	for _, word := range strings.Fields(args) {
		k, v, ok := strings.Cut(word, "=")
		if ok && k != "" {
			key = strings.ToLower(k)
			values.Add(key, v)
			continue
		}
		if key == "" {
			continue
		}
		vals := values[key]
		vals[len(vals)-1] = strings.TrimSpace(vals[len(vals)-1] + " " + word)
	}
	return values
}

// parseNewTask reads "title | priority | category | YYYY-MM-DD". Blank
// parts are skipped. A due date means the end of that day, UTC.
func parseNewTask(args string) (service.TaskInput, error) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	input := service.TaskInput{Title: parts[0]}
	if input.Title == "" {
		return input, errors.New("usage: /newtask title | priority | category | YYYY-MM-DD")
	}
	if len(parts) > 1 {
		input.Priority = parts[1]
	}
	if len(parts) > 2 {
		input.Category = parts[2]
	}
	if len(parts) > 3 && parts[3] != "" {
		day, err := time.Parse(dueDateLayout, parts[3])
		if err != nil {
			return input, fmt.Errorf("due date must look like %s", dueDateLayout)
		}
		due := day.Add(24*time.Hour - time.Second)
		input.DueDate = &due
	}
	return input, nil
}

func renderTaskList(tasks []model.Task, now time.Time) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(tasks) == 0 {
		return "No tasks found. Add one with /newtask.", nil
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Tasks: %d</b>\n", len(tasks)))
	var rows [][]tgbotapi.InlineKeyboardButton
	shown := 0
	for _, task := range tasks {
		line := service.FormatTask(task, now)
		if builder.Len()+len(line) > maxListBytes {
			break
		}
		builder.WriteString(line)
		shown++

		if len(rows) >= maxListButtons {
			continue
		}
		icon := "✅"
		if task.IsCompleted {
			icon = "↩️"
		}
		label := fmt.Sprintf("%s #%d · %s", icon, task.ID, shortTitle(task.Title, buttonTitleLen))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbTogglePrefix, task.ID)),
		))
	}
	if rest := len(tasks) - shown; rest > 0 {
		builder.WriteString(fmt.Sprintf("\n… and %d more. Narrow the list, e.g. /tasks completed=false", rest))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(builder.String()), &markup
}

func renderCategories(stats []model.CategoryStat) string {
	if len(stats) == 0 {
		return "You have no categories yet."
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, stat := range stats {
		builder.WriteString(fmt.Sprintf("• %s: %d\n", escape(stat.Name), stat.TaskCount))
	}
	return strings.TrimSpace(builder.String())
}

func renderValidation(verr *service.ValidationError) string {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s %s", strings.ReplaceAll(name, "_", " "), verr.Fields[name]))
	}
	return strings.Join(lines, "\n")
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
