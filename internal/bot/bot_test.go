package bot

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

var testCategories = []string{"Work", "Personal", "Health", "Learning", "Shopping"}

type fakeSender struct {
	messages  []tgbotapi.MessageConfig
	callbacks []tgbotapi.CallbackConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	if len(f.messages) == 0 {
		t.Fatal("expected a reply, got none")
	}
	return f.messages[len(f.messages)-1]
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	db, err := repository.NewDB("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	out := &fakeSender{}
	b := newBot(out,
		repository.NewUserRepository(db),
		service.NewCategoryService(categoryRepo),
		service.NewTaskService(taskRepo, categoryRepo),
		service.NewReminderService(taskRepo),
		testCategories,
	)
	return b, out
}

func command(from int64, text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: from, FirstName: "Ann"},
		Chat:     &tgbotapi.Chat{ID: from, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func (b *Bot) run(t *testing.T, out *fakeSender, from int64, text string) string {
	t.Helper()
	if err := b.handleMessage(context.Background(), command(from, text)); err != nil {
		t.Fatalf("%s: %v", text, err)
	}
	reply := out.last(t)
	if reply.ChatID != from {
		t.Errorf("%s: reply went to chat %d, want %d", text, reply.ChatID, from)
	}
	return reply.Text
}

func expectContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("expected %q in reply:\n%s", w, got)
		}
	}
}

func TestParseQueryArgs(t *testing.T) {
	tests := []struct {
		args string
		want map[string][]string
	}{
		{args: "", want: map[string][]string{}},
		{args: "priority=high completed=false", want: map[string][]string{"priority": {"high"}, "completed": {"false"}}},
		{args: "search=buy milk sort_by=due_date", want: map[string][]string{"search": {"buy milk"}, "sort_by": {"due_date"}}},
		{args: "Category=3", want: map[string][]string{"category": {"3"}}},
		{args: "stray words", want: map[string][]string{}},
		{args: "completed=", want: map[string][]string{"completed": {""}}},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got := parseQueryArgs(tt.args)
			if !reflect.DeepEqual(map[string][]string(got), tt.want) {
				t.Errorf("parseQueryArgs(%q) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseNewTask(t *testing.T) {
	due := time.Date(2099, time.January, 1, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name    string
		args    string
		want    service.TaskInput
		wantErr bool
	}{
		{name: "title only", args: "Buy milk", want: service.TaskInput{Title: "Buy milk"}},
		{name: "all parts", args: " Buy milk | high | Errands | 2099-01-01 ", want: service.TaskInput{Title: "Buy milk", Priority: "high", Category: "Errands", DueDate: &due}},
		{name: "blank middle parts", args: "Buy milk | | | 2099-01-01", want: service.TaskInput{Title: "Buy milk", DueDate: &due}},
		{name: "missing title", args: " | high", wantErr: true},
		{name: "bad date", args: "Buy milk | low | | tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNewTask(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseNewTask(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("  Write\nthe   report ", 24); got != "Write the report" {
		t.Errorf("shortTitle collapsed = %q", got)
	}
	if got := shortTitle("abcdefgh", 5); got != "abcd…" {
		t.Errorf("shortTitle truncated = %q", got)
	}
}

func TestBotSeedsDefaultCategoriesOnFirstContact(t *testing.T) {
	b, out := newTestBot(t)

	expectContains(t, b.run(t, out, 42, "/start"), "Hi, Ann", "/newtask")
	reply := b.run(t, out, 42, "/categories")
	for _, name := range testCategories {
		expectContains(t, reply, name+": 0")
	}

	b.run(t, out, 42, "/start")
	users, err := b.userRepo.ListTelegramUsers(context.Background())
	if err != nil {
		t.Fatalf("ListTelegramUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected one user after repeated contact, got %d", len(users))
	}
}

func TestBotTaskFlow(t *testing.T) {
	b, out := newTestBot(t)

	reply := b.run(t, out, 42, "/newtask Buy milk | high | Errands | 2099-01-01")
	expectContains(t, reply, "Task added", "Buy milk", "Errands")
	b.run(t, out, 42, "/newtask Walk the dog | low")

	reply = b.run(t, out, 42, "/tasks priority=high")
	expectContains(t, reply, "Tasks: 1", "Buy milk")
	if strings.Contains(reply, "Walk the dog") {
		t.Errorf("priority filter leaked a low task:\n%s", reply)
	}

	markup, ok := out.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("expected one toggle button, got %#v", out.last(t).ReplyMarkup)
	}
	data := markup.InlineKeyboard[0][0].CallbackData
	if data == nil || !strings.HasPrefix(*data, cbTogglePrefix) {
		t.Fatalf("unexpected callback data %v", data)
	}
	taskID := strings.TrimPrefix(*data, cbTogglePrefix)

	err := b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
		Data:    *data,
	})
	if err != nil {
		t.Fatalf("handleCallback: %v", err)
	}
	if len(out.callbacks) != 1 || out.callbacks[0].CallbackQueryID != "cb-1" {
		t.Errorf("expected the callback to be acknowledged, got %+v", out.callbacks)
	}
	expectContains(t, out.last(t).Text, "Task done", "Buy milk")

	expectContains(t, b.run(t, out, 42, "/tasks completed=true"), "Tasks: 1", "Buy milk")
	expectContains(t, b.run(t, out, 42, "/toggle "+taskID), "Task reopened")
	expectContains(t, b.run(t, out, 42, "/categories"), "Errands: 1")
	expectContains(t, b.run(t, out, 42, "/delete "+taskID), "Buy milk", "deleted")
	expectContains(t, b.run(t, out, 42, "/tasks search=milk"), "No tasks found")
}

func TestBotReportsProblems(t *testing.T) {
	b, out := newTestBot(t)

	tests := []struct {
		text string
		want string
	}{
		{text: "/newtask", want: "usage: /newtask"},
		{text: "/newtask Buy milk | urgent", want: "priority must be one of low, medium, high"},
		{text: "/newtask Buy milk | low | | 2001-01-01", want: "due date must be in the future"},
		{text: "/toggle abc", want: "Give the task id"},
		{text: "/toggle 999", want: "Task not found."},
		{text: "/delete 999", want: "Task not found."},
		{text: "/frobnicate", want: "Unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			expectContains(t, b.run(t, out, 42, tt.text), tt.want)
		})
	}

	if err := b.handleMessage(context.Background(), &tgbotapi.Message{
		Text: "hello",
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42, Type: "private"},
	}); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	expectContains(t, out.last(t).Text, "/help")
}

func TestBotKeepsUsersApart(t *testing.T) {
	b, out := newTestBot(t)

	b.run(t, out, 1, "/newtask Secret plan")
	owner, err := b.userRepo.UpsertFromTelegram(context.Background(), 1, "Ann", "", testCategories)
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	tasks, err := b.taskSvc.ListTasks(context.Background(), owner, model.TaskFilter{})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one task for owner, got %d (%v)", len(tasks), err)
	}
	id := fmt.Sprint(tasks[0].ID)

	expectContains(t, b.run(t, out, 2, "/toggle "+id), "Task not found.")
	expectContains(t, b.run(t, out, 2, "/delete "+id), "Task not found.")
	expectContains(t, b.run(t, out, 2, "/tasks"), "No tasks found")

	task, err := b.taskSvc.GetTask(context.Background(), owner, tasks[0].ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.IsCompleted {
		t.Error("another user's toggle changed the task")
	}
}

func TestSendDailyReports(t *testing.T) {
	b, out := newTestBot(t)
	b.run(t, out, 1, "/newtask Pay rent | high")
	b.run(t, out, 2, "/start")
	out.messages = nil

	if err := b.SendDailyReports(context.Background()); err != nil {
		t.Fatalf("SendDailyReports: %v", err)
	}
	if len(out.messages) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(out.messages))
	}

	byChat := make(map[int64]string)
	for _, msg := range out.messages {
		byChat[msg.ChatID] = msg.Text
	}
	expectContains(t, byChat[1], "Daily summary", "Open tasks: 1", "Pay rent")
	expectContains(t, byChat[2], "Daily summary", "no open tasks")
}

func TestRenderTaskListFitsOneMessage(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	tasks := make([]model.Task, 60)
	for i := range tasks {
		tasks[i] = model.Task{ID: uint(i + 1), Title: strings.Repeat("t", 190), Priority: model.PriorityHigh}
	}

	text, markup := renderTaskList(tasks, now)
	if n := len([]rune(text)); n > 4096 {
		t.Errorf("list is %d characters, want at most 4096", n)
	}
	expectContains(t, text, "Tasks: 60", "more")
	if markup == nil || len(markup.InlineKeyboard) == 0 || len(markup.InlineKeyboard) > maxListButtons {
		t.Fatalf("unexpected keyboard %#v", markup)
	}

	text, markup = renderTaskList(tasks[:3], now)
	if strings.Contains(text, "more") {
		t.Errorf("short list should not be cut:\n%s", text)
	}
	if len(markup.InlineKeyboard) != 3 {
		t.Errorf("expected 3 buttons, got %d", len(markup.InlineKeyboard))
	}
}
