package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stageDueDate
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	btnSkip             = "⏭️ Skip"
	btnCancelDialog     = "⏪ Cancel"
	menuLabelNewTask    = "➕ New task"
	menuLabelTasks      = "📋 Tasks"
	menuLabelCategories = "📂 Categories"
	menuLabelStats      = "📊 Stats"
)

type conversationState struct {
	stage conversationStage
	input model.TaskInput
}

// Board is the controller surface the bot drives.
type Board interface {
	Snapshot() service.Snapshot
	CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error)
	ToggleComplete(ctx context.Context, id string) (model.Task, error)
	MoveTask(ctx context.Context, id, categoryID string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, input model.CategoryInput) (model.Category, error)
	SetCategoryFilter(categoryID *string)
	SetSearchQuery(query string)
	ClearError()
}

// Bot exposes the task board over Telegram.
type Bot struct {
	api           *tgbotapi.BotAPI
	board         Board
	summary       *service.SummaryService
	allowedChat   int64
	conversations map[int64]*conversationState
	lists         map[int64][]string
	mu            sync.Mutex
}

// New connects to the Telegram API. When allowedChat is non-zero, messages
// from other chats are ignored.
func New(token string, board Board, summary *service.SummaryService, allowedChat int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		board:         board,
		summary:       summary,
		allowedChat:   allowedChat,
		conversations: make(map[int64]*conversationState),
		lists:         make(map[int64][]string),
	}, nil
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
			if update.Message.Chat == nil || !b.chatAllowed(update.Message.Chat.ID) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

// SendReport posts the task summary to chatID.
func (b *Bot) SendReport(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.sendText(chatID, b.summary.Summary(time.Now()))
}

func (b *Bot) chatAllowed(chatID int64) bool {
	return b.allowedChat == 0 || b.allowedChat == chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		return b.sendTextWithMenu(chatID, "⏪ Task creation cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", chatID, msg.Command(), msg.CommandArguments())
		b.clearConversation(chatID)
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(chatID, "I did not get that. Send /newtask to add a task or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return b.sendTextWithMenu(chatID, helpText)
	case "tasks":
		return b.sendTaskList(chatID)
	case "newtask":
		b.setConversation(chatID, &conversationState{stage: stageTitle})
		return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "done":
		return b.handleByNumber(ctx, chatID, args, b.toggle)
	case "delete":
		return b.handleByNumber(ctx, chatID, args, b.delete)
	case "move":
		return b.handleMove(ctx, chatID, args)
	case "search":
		b.board.SetSearchQuery(args)
		return b.sendTaskList(chatID)
	case "filter":
		return b.handleFilter(chatID, args)
	case "categories":
		return b.sendText(chatID, renderCategories(b.board.Snapshot()))
	case "newcategory":
		return b.handleNewCategory(ctx, chatID, args)
	case "stats", "report":
		return b.SendReport(ctx, chatID)
	default:
		return b.sendText(chatID, "Unknown command. Check /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks — show the current list\n" +
	"• /newtask — add a task step by step\n" +
	"• /add &lt;title&gt; | &lt;category&gt; [| YYYY-MM-DD] — add a task in one line\n" +
	"• /done &lt;n&gt; — toggle task number n\n" +
	"• /move &lt;n&gt; &lt;category&gt; — move task n\n" +
	"• /delete &lt;n&gt; — delete task n\n" +
	"• /search &lt;text&gt; — filter by text (empty clears)\n" +
	"• /filter &lt;category|all&gt; — show one category\n" +
	"• /categories — list categories\n" +
	"• /newcategory &lt;name&gt; — add a category\n" +
	"• /stats — progress summary"

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	input, err := parseAddArgs(args, b.board.Snapshot().Categories, time.Now().Location())
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.createTask(ctx, chatID, input)
}

func (b *Bot) createTask(ctx context.Context, chatID int64, input model.TaskInput) error {
	task, err := b.board.CreateTask(ctx, input)
	if err != nil {
		return b.reportError(chatID, "Could not add the task", err)
	}
	if err := b.sendTextWithMenu(chatID, fmt.Sprintf("✅ Added <b>%s</b>", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) handleByNumber(ctx context.Context, chatID int64, args string, action func(context.Context, int64, string) error) error {
	id, err := b.resolveNumber(chatID, args)
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return action(ctx, chatID, id)
}

func (b *Bot) handleMove(ctx context.Context, chatID int64, args string) error {
	number, name, _ := strings.Cut(args, " ")
	id, err := b.resolveNumber(chatID, number)
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	category, ok := findCategory(b.board.Snapshot().Categories, name)
	if !ok {
		return b.sendText(chatID, fmt.Sprintf("No category named %q. See /categories.", escape(strings.TrimSpace(name))))
	}
	task, err := b.board.MoveTask(ctx, id, category.ID)
	if err != nil {
		return b.reportError(chatID, "Could not move the task", err)
	}
	if err := b.sendText(chatID, fmt.Sprintf("📦 <b>%s</b> moved to %s", escape(task.Title), escape(category.Name))); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) handleFilter(chatID int64, args string) error {
	if args == "" || strings.EqualFold(args, "all") {
		b.board.SetCategoryFilter(nil)
		return b.sendTaskList(chatID)
	}
	category, ok := findCategory(b.board.Snapshot().Categories, args)
	if !ok {
		return b.sendText(chatID, fmt.Sprintf("No category named %q. See /categories.", escape(args)))
	}
	b.board.SetCategoryFilter(&category.ID)
	return b.sendTaskList(chatID)
}

func (b *Bot) handleNewCategory(ctx context.Context, chatID int64, args string) error {
	category, err := b.board.CreateCategory(ctx, model.CategoryInput{Name: args})
	if err != nil {
		return b.reportError(chatID, "Could not add the category", err)
	}
	return b.sendText(chatID, fmt.Sprintf("📂 Category <b>%s</b> added", escape(category.Name)))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The title cannot be empty. What should the task be called?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageCategory
		return b.sendWithReplyMarkup(chatID, "🏷 <b>Step 2:</b> pick a category.", categoryKeyboard(b.board.Snapshot().Categories))
	case stageCategory:
		category, ok := findCategory(b.board.Snapshot().Categories, text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Pick one of the listed categories.", categoryKeyboard(b.board.Snapshot().Categories))
		}
		state.input.CategoryID = category.ID
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ <b>Step 3:</b> due date as <code>2025-11-30</code>, or skip.", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDate(text, time.Now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Cannot read that date. Use <code>2025-11-30</code> or skip.", skipKeyboard())
			}
			state.input.DueDate = &due
		}
		b.clearConversation(chatID)
		return b.createTask(ctx, chatID, state.input)
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewTask:
		b.setConversation(chatID, &conversationState{stage: stageTitle})
		return true, b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
	case menuLabelTasks:
		return true, b.sendTaskList(chatID)
	case menuLabelCategories:
		return true, b.sendText(chatID, renderCategories(b.board.Snapshot()))
	case menuLabelStats:
		return true, b.SendReport(ctx, chatID)
	}
	return false, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.Message.Chat == nil || !b.chatAllowed(cb.Message.Chat.ID) {
		return nil
	}
	chatID := cb.Message.Chat.ID

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("answer callback: %v", err)
	}

	switch {
	case strings.HasPrefix(cb.Data, cbTogglePrefix):
		return b.toggle(ctx, chatID, strings.TrimPrefix(cb.Data, cbTogglePrefix))
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		return b.delete(ctx, chatID, strings.TrimPrefix(cb.Data, cbDeletePrefix))
	}
	return nil
}

func (b *Bot) toggle(ctx context.Context, chatID int64, id string) error {
	task, err := b.board.ToggleComplete(ctx, id)
	if err != nil {
		return b.reportError(chatID, "Could not update the task", err)
	}
	title := escape(shortTitle(task.Title, 60))
	text := fmt.Sprintf("↩️ <b>%s</b> reopened", title)
	if task.Completed {
		text = fmt.Sprintf("🎉 <b>%s</b> done", title)
	}
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) delete(ctx context.Context, chatID int64, id string) error {
	if err := b.board.DeleteTask(ctx, id); err != nil {
		return b.reportError(chatID, "Could not delete the task", err)
	}
	if err := b.sendText(chatID, "🗑 Task deleted"); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

// reportError shows err to the chat. Request errors are shown as-is;
// storage failures get a generic message and stay in the log.
func (b *Bot) reportError(chatID int64, prefix string, err error) error {
	b.board.ClearError()
	if service.IsUserError(err) {
		return b.sendText(chatID, fmt.Sprintf("%s: %s", prefix, escape(err.Error())))
	}
	return b.sendText(chatID, prefix+": storage is unavailable, try again later.")
}

func (b *Bot) sendTaskList(chatID int64) error {
	text, ids := renderTaskList(b.board.Snapshot(), time.Now())
	b.setList(chatID, ids)
	if len(ids) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, taskKeyboard(ids))
}

func (b *Bot) resolveNumber(chatID int64, arg string) (string, error) {
	b.mu.Lock()
	ids := b.lists[chatID]
	b.mu.Unlock()
	return pickNumbered(ids, arg)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithMenu(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setList(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[chatID] = ids
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
