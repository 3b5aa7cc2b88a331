// Package bot connects the defusal engine to Telegram. It owns the telebot
// instance, translates incoming messages into engine commands and implements
// the engine's outbound Messenger boundary, including the detonation vote
// keyboard.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"ktane-bot/internal/bomb"
	"ktane-bot/internal/config"
	"ktane-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot         *tele.Bot
	cfg         *config.Config
	manager     *bomb.Manager
	leaderboard *service.LeaderboardService
	polls       *pollRegistry
}

// Dependencies holds everything the bot needs. Leaderboard may be nil when
// no database is configured.
type Dependencies struct {
	Config      *config.Config
	Registry    *bomb.Registry
	Archiver    bomb.Archiver
	Leaderboard *service.LeaderboardService
}

// New creates the bot and the session manager around it. The bot itself is
// the manager's Messenger, so both are built here.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:         teleBot,
		cfg:         deps.Config,
		leaderboard: deps.Leaderboard,
		polls:       newPollRegistry(),
	}

	var recorder bomb.SolveRecorder
	if deps.Leaderboard != nil {
		recorder = deps.Leaderboard
	}

	b.manager = bomb.NewManager(deps.Registry, bomb.Deps{
		Messenger: b,
		Archiver:  deps.Archiver,
		Recorder:  recorder,
		Settings: bomb.Settings{
			OwnerID:          deps.Config.Bot.OwnerID,
			Prefix:           deps.Config.Bot.Prefix,
			DetonateTimeout:  deps.Config.Detonate.Timeout,
			DetonateApproval: deps.Config.Detonate.Approval,
			DetonateEmoji:    deps.Config.Detonate.Emoji,
			MaxModules:       deps.Config.Limits.MaxModules,
			MaxUnclaimedList: deps.Config.Limits.MaxUnclaimedList,
			MaxFoundList:     deps.Config.Limits.MaxFoundList,
		},
	})

	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RecoveryMiddleware())

	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(tele.OnCallback, b.handleCallback)

	return b, nil
}

// Manager returns the session manager, mainly for its Done channel.
func (b *Bot) Manager() *bomb.Manager {
	return b.manager
}

// handleText parses prefixed commands and dispatches them to the engine.
// Dispatch runs in its own goroutine so a slow channel never stalls polling;
// the engine serializes commands per channel itself.
func (b *Bot) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	prefix := b.cfg.Bot.Prefix
	if !strings.HasPrefix(text, prefix) {
		return nil
	}
	parts := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(parts) == 0 {
		return nil
	}

	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	if strings.EqualFold(parts[0], "leaderboard") {
		return b.handleLeaderboard(c)
	}

	engineChat := bomb.Chat{ID: chat.ID, Private: chat.Type == tele.ChatPrivate}
	engineUser := toEngineUser(sender)

	go b.manager.Dispatch(context.Background(), engineChat, engineUser, parts)
	return nil
}

// handleLeaderboard renders the defuser leaderboard. Runs in the transport
// layer because it reads persistence, not session state.
func (b *Bot) handleLeaderboard(c tele.Context) error {
	if b.leaderboard == nil {
		return c.Reply("The leaderboard is not available: no database is configured.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := b.leaderboard.FormatTop(ctx, 10)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render leaderboard")
		return c.Reply("Failed to load the leaderboard. Try again later.")
	}
	return c.Reply(text, tele.ModeMarkdown)
}

// handleCallback routes detonation vote button presses.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot may prefix callback data with \f.
	data := strings.TrimPrefix(callback.Data, "\f")
	if !strings.HasPrefix(data, votePrefix) {
		return nil
	}
	return b.polls.handleVote(c, strings.TrimPrefix(data, votePrefix))
}

// SendText delivers a message to a chat.
func (b *Bot) SendText(ctx context.Context, channelID int64, text string) error {
	_, err := b.bot.Send(tele.ChatID(channelID), text, tele.ModeMarkdown)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// PromptApproval posts the detonation prompt with a vote button and returns
// the poll tracking approvals.
func (b *Bot) PromptApproval(ctx context.Context, channelID int64, text, emoji string) (bomb.ApprovalPoll, error) {
	poll := b.polls.create()

	markup := &tele.ReplyMarkup{}
	btn := markup.Data(emoji+" Detonate", voteUnique, poll.id)
	markup.Inline(markup.Row(btn))

	msg, err := b.bot.Send(tele.ChatID(channelID), text, tele.ModeMarkdown, markup)
	if err != nil {
		b.polls.remove(poll.id)
		return nil, fmt.Errorf("failed to post detonation prompt: %w", err)
	}
	poll.attach(b.bot, msg)
	return poll, nil
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("prefix", b.cfg.Bot.Prefix).Msg("Bot is starting")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot")
	b.bot.Stop()
}

func toEngineUser(sender *tele.User) bomb.User {
	name := sender.Username
	if name == "" {
		name = strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	}
	mention := name
	if sender.Username != "" {
		mention = "@" + sender.Username
	}
	return bomb.User{ID: sender.ID, Name: name, Mention: mention}
}
