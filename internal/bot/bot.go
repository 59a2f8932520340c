package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

const cbTogglePrefix = "toggle:"

// sender is the part of the Telegram API the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api         *tgbotapi.BotAPI
	out         sender
	userRepo    *repository.UserRepository
	categorySvc *service.CategoryService
	taskSvc     *service.TaskService
	reminderSvc *service.ReminderService
	categories  []string
	now         func() time.Time
}

// New connects to Telegram. defaultCategories are created for users seen
// for the first time.
func New(token string, userRepo *repository.UserRepository, categorySvc *service.CategoryService, taskSvc *service.TaskService, reminderSvc *service.ReminderService, defaultCategories []string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, userRepo, categorySvc, taskSvc, reminderSvc, defaultCategories)
	b.api = api
	return b, nil
}

func newBot(out sender, userRepo *repository.UserRepository, categorySvc *service.CategoryService, taskSvc *service.TaskService, reminderSvc *service.ReminderService, defaultCategories []string) *Bot {
	return &Bot{
		out:         out,
		userRepo:    userRepo,
		categorySvc: categorySvc,
		taskSvc:     taskSvc,
		reminderSvc: reminderSvc,
		categories:  defaultCategories,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I did not get that. Use /newtask to add a task or /help for the list of commands.")
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "tasks":
		return b.handleListTasks(ctx, msg, user)
	case "newtask":
		return b.handleNewTask(ctx, msg, user)
	case "toggle":
		return b.handleToggle(ctx, msg, user)
	case "delete":
		return b.handleDelete(ctx, msg, user)
	case "categories":
		return b.handleCategories(ctx, msg, user)
	case "report":
		return b.handleReport(ctx, msg, user)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks [key=value ...] — list tasks; keys: search, category, priority, completed, sort_by\n" +
	"• /newtask title | priority | category | YYYY-MM-DD — add a task (only the title is required)\n" +
	"• /toggle &lt;id&gt; — mark a task done or open it again\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /categories — categories with task counts\n" +
	"• /report — summary of open tasks\n" +
	"• /help — this message"

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of your tasks.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	filter := model.ParseTaskFilter(parseQueryArgs(msg.CommandArguments()))
	tasks, err := b.taskSvc.ListTasks(ctx, user, filter)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}

	text, markup := renderTaskList(tasks, b.now())
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		out.ReplyMarkup = *markup
	}
	_, err = b.out.Send(out)
	return err
}

func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	input, err := parseNewTask(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	log.Printf("[info] task %d created by telegram user %d", task.ID, msg.From.ID)
	return b.sendText(msg.Chat.ID, "➕ Task added:\n"+service.FormatTask(*task, b.now()))
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	taskID, ok := parseID(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the task id: /toggle 12")
	}
	return b.toggleTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) toggleTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.ToggleTask(ctx, user, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	prefix := "↩️ Task reopened:\n"
	if task.IsCompleted {
		prefix = "✅ Task done:\n"
	}
	return b.sendText(chatID, prefix+service.FormatTask(*task, b.now()))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	taskID, ok := parseID(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the task id: /delete 12")
	}

	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(task.Title)))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	stats, err := b.categorySvc.List(ctx, user)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, renderCategories(stats))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	text, err := b.reminderSvc.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	if !strings.HasPrefix(cb.Data, cbTogglePrefix) {
		return nil
	}
	log.Printf("[info] callback toggle user=%d task=%s", cb.From.ID, strings.TrimPrefix(cb.Data, cbTogglePrefix))

	taskID, ok := parseID(strings.TrimPrefix(cb.Data, cbTogglePrefix))
	if !ok {
		return nil
	}
	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	return b.toggleTask(ctx, cb.Message.Chat.ID, user, taskID)
}

// SendDailyReports sends a summary to every user known to the bot.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListTelegramUsers(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.reminderSvc.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("build summary for user %d: %v", *user.TelegramID, err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", *user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	user, err := b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, b.categories)
	if err != nil {
		return nil, fmt.Errorf("upsert telegram user %d: %w", from.ID, err)
	}
	return user, nil
}

// replyError tells the user what went wrong with their request. Errors that
// are not the user's fault are logged and reported vaguely.
func (b *Bot) replyError(chatID int64, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return b.sendText(chatID, "⚠️ "+escape(renderValidation(verr)))
	case errors.Is(err, service.ErrNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, service.ErrConflict):
		return b.sendText(chatID, "That name is already taken.")
	default:
		log.Printf("bot request failed for chat %d: %v", chatID, err)
		return b.sendText(chatID, "Something went wrong, try again later.")
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func parseID(raw string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
