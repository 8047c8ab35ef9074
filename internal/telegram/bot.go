// Package telegram is the chat front-end: one Telegram chat maps to one
// coaching session, and plain messages are routed to whichever stage the
// session is in.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/coach"
	"nutrition-coach/internal/config"
	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/metrics"
)

const welcomeText = `👋 *Hi, I'm your nutrition coach.*

Tell me about yourself: sex, age, height, weight, how active you are and whether you want to lose, maintain or gain weight.

I'll work out your daily calorie target, ask for your favorite meals and put together a week of recipes with a ready-made grocery cart.

/reset starts over at any time.`

// Bot wraps the Telegram API around the coaching pipeline.
type Bot struct {
	api          *tgbotapi.BotAPI
	pipeline     *coach.Pipeline
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram bot and registers the webhook.
func NewBot(cfg *config.Config, pipeline *coach.Pipeline, metricsStore *metrics.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("authorized on telegram")

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info().Str("response", resp.Description).Msg("webhook set")

	return &Bot{
		api:          api,
		pipeline:     pipeline,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Error().Err(err).Msg("error parsing update")
		return
	}

	if update.Message == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Warn().
			Int64("user_id", update.Message.From.ID).
			Str("username", update.Message.From.UserName).
			Msg("unauthorized access attempt")
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	if len(b.cfg.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	sessionID := fmt.Sprintf("tg-%d", msg.From.ID)

	switch msg.Text {
	case "/start":
		b.send(msg.Chat.ID, welcomeText)
		return
	case "/reset":
		b.pipeline.Reset(sessionID)
		b.send(msg.Chat.ID, "🔄 Fresh start. Tell me about yourself.")
		return
	case "/metrics":
		b.handleMetricsRequest(msg)
		return
	}

	state := b.pipeline.Snapshot(sessionID)
	switch state.Stage {
	case domain.StageIntake, domain.StagePrefs:
		b.handleConversationTurn(msg, sessionID, state.Stage)
	case domain.StagePlanning:
		b.handlePlanRequest(msg, sessionID)
	case domain.StageDone:
		b.send(msg.Chat.ID, fmt.Sprintf("Your week is already planned, groceries are at %s.\nUse /reset to plan again.", state.CartURL))
	}
}

func (b *Bot) handleConversationTurn(msg *tgbotapi.Message, sessionID string, stage domain.Stage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var reply coach.Reply
	var err error
	if stage == domain.StageIntake {
		reply, err = b.pipeline.SubmitIntake(ctx, sessionID, msg.Text)
	} else {
		reply, err = b.pipeline.SubmitPrefs(ctx, sessionID, msg.Text)
	}
	if err != nil {
		b.sendError(msg.Chat.ID, err)
		return
	}

	text := reply.Say
	if reply.Stage == domain.StagePlanning.String() {
		text += "\n\nSend any message when you want the plan."
	}
	b.send(msg.Chat.ID, text)
}

func (b *Bot) handlePlanRequest(msg *tgbotapi.Message, sessionID string) {
	statusMsg := tgbotapi.NewMessage(msg.Chat.ID, "🧑‍🍳 *Thinking...* \n(Putting your week and groceries together)")
	statusMsg.ParseMode = "Markdown"
	sent, err := b.api.Send(statusMsg)
	if err != nil {
		log.Error().Err(err).Msg("failed to send initial reply")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := b.pipeline.RequestPlan(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("error generating plan")
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sent.MessageID, fmt.Sprintf("❌ *Could not build your plan:*\n```\n%v\n```\nSend another message to retry.", safeErr))
		edit.ParseMode = "Markdown"
		b.api.Send(edit)
		return
	}

	planText, shoppingText := formatPlanParts(reply)

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sent.MessageID, planText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)

	shoppingMsg := tgbotapi.NewMessage(msg.Chat.ID, shoppingText)
	shoppingMsg.ParseMode = "Markdown"
	b.api.Send(shoppingMsg)
}

func formatPlanParts(reply coach.Reply) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Your Week*\n")
	pb.WriteString(fmt.Sprintf("_Target: %d kcal/day (burn estimate %d)_\n\n", reply.TargetCalories, reply.TDEE))

	if reply.Plan != nil {
		pb.WriteString("*Breakfasts*\n")
		for _, r := range reply.Plan.Breakfasts {
			pb.WriteString(fmt.Sprintf("• %s (%d kcal/serving)\n", r.Name, r.Nutrition.Calories))
		}
		pb.WriteString("\n*Lunch & Dinner*\n")
		for _, r := range reply.Plan.Mains {
			pb.WriteString(fmt.Sprintf("• %s (%d kcal/serving)\n", r.Name, r.Nutrition.Calories))
		}
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, item := range reply.ShoppingList {
		sb.WriteString(fmt.Sprintf("• %s %g %s\n", item.Name, item.Qty, item.Unit))
	}
	sb.WriteString(fmt.Sprintf("\nCheckout: %s", reply.CheckoutURL))
	if reply.CheckoutMode == "mock" {
		sb.WriteString(" _(demo cart)_")
	}

	return pb.String(), sb.String()
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := b.metricsStore.Summary(ctx, 7)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.CollectSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Last 7 Days*\n")
	if len(summary) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, s := range summary {
		sb.WriteString(fmt.Sprintf("• *%s*: %d runs, %d failed, avg %dms\n", s.Op, s.Runs, s.Failures, s.AvgLatencyMS))
	}

	if usage, err := b.metricsStore.DailyTokenUsage(ctx, 7); err == nil && len(usage) > 0 {
		sb.WriteString("\n🤖 *LLM Tokens*\n")
		for _, d := range usage {
			sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d calls)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.Calls))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) sendError(chatID int64, err error) {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.send(chatID, fmt.Sprintf("❌ *Something went wrong:*\n```\n%v\n```", safeErr))
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("failed to send telegram message")
	}
}
