package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/rajeshboy669/linxbot/core/telegram/commands"
	"github.com/rajeshboy669/linxbot/core/telegram/format"
	tghelpers "github.com/rajeshboy669/linxbot/core/telegram/helpers"
	"github.com/rajeshboy669/linxbot/core/telegram/state"
	"github.com/rajeshboy669/linxbot/internal/withdraw"
)

func (a *App) registerHandlers() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot and get an introduction",
	})
	a.registry.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "List available commands",
	})
	a.registry.RegisterCommand("/features", commands.Command{
		Handler:     a.handleFeatures,
		Description: "What this bot can do",
	})
	a.registry.RegisterCommand("/setapi", commands.Command{
		Handler:     a.handleSetAPI,
		Description: "Register your API key",
	})
	a.registry.RegisterCommand("/balance", commands.Command{
		Handler:     a.handleBalance,
		Description: "Show your earnings balance",
	})
	a.registry.RegisterCommand("/withdraw", commands.Command{
		Handler:     a.handleWithdraw,
		Description: "Withdraw your earnings",
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current operation",
	})
	a.registry.RegisterCommand("/logout", commands.Command{
		Handler:     a.handleLogout,
		Description: "Remove your saved API key",
	})

	_ = a.registry.RegisterCallback(cbMethod, a.handleMethodCallback)
	_ = a.registry.RegisterCallback(cbCancel, a.handleCancelCallback)

	state.RegisterHandler(withdraw.StateAmount, a.handleAmountState)
	state.RegisterHandler(withdraw.StateMethod, a.handleMethodState)
	state.RegisterHandler(withdraw.StateAccount, a.handleAccountState)

	a.registry.SetTextFallback(a.handleText)
}

func (a *App) handleStart(c tele.Context) error {
	name := strings.TrimSpace(c.Sender().FirstName + " " + c.Sender().LastName)
	text := fmt.Sprintf(
		"Hello %s! 👋\n\n"+
			"🚀 I shorten every link you send me through your monetized account and keep track of your earnings.\n\n"+
			"Set your API key with /setapi <API_KEY>, then just send me any message with links.\n"+
			"Check /balance and withdraw earnings with /withdraw. 💰",
		name,
	)

	if a.cfg.Linx.SignupURL != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(markup.URL("Sign Up", a.cfg.Linx.SignupURL)))
		return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
	}
	return tghelpers.SendText(c, text)
}

func (a *App) handleHelp(c tele.Context) error {
	text := "Here are the commands you can use:\n\n" +
		"/start - Start the bot and get an introduction.\n" +
		"/setapi <API_KEY> - Register your API key to start shortening links.\n" +
		"/balance - Check your earnings balance and statistics.\n" +
		"/withdraw - Withdraw your earnings.\n" +
		"/cancel - Cancel an ongoing withdrawal.\n" +
		"/logout - Remove your API key from the bot.\n" +
		"/features - View the features offered by the bot.\n\n" +
		"To shorten links, simply send a message with a URL and I'll handle the rest."

	if a.cfg.Linx.SupportContact != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(markup.URL("24/7 support", a.cfg.Linx.SupportContact)))
		return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
	}
	return tghelpers.SendText(c, text)
}

func (a *App) handleFeatures(c tele.Context) error {
	return tghelpers.SendText(c,
		"What I can do:\n\n"+
			"1. URL shortening: every link in your messages is monetized automatically.\n"+
			"2. Bulk processing: multiple links per message, shortened concurrently.\n"+
			"3. Photo captions: links inside captions are shortened too.\n"+
			"4. Telegram links are left untouched.\n"+
			"5. Balance tracking with /balance.\n"+
			"6. Withdrawals with /withdraw, remembering your payout account.\n"+
			"7. Secure logout with /logout.")
}

func (a *App) handleSetAPI(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := strings.TrimSpace(c.Message().Payload)
	if key == "" {
		return tghelpers.SendText(c, "Please provide an API key. Example: /setapi <API_KEY>")
	}

	userID := c.Sender().ID
	if err := a.users.UpsertAPIKey(ctx, userID, key); err != nil {
		return tghelpers.SendText(c, "❌ Could not save your API key. Please try again.")
	}
	a.sessions.SetTemp(userID, tempAPIKey, key)
	return tghelpers.SendText(c, "✅ API key saved. Send me a link to try it out!")
}

func (a *App) handleBalance(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if a.cfg.Linx.BalanceURL == "" {
		return tghelpers.SendText(c, "Balance lookup is not available on this bot.")
	}
	key, ok, err := a.requireAPIKey(ctx, c)
	if !ok {
		return err
	}

	balance, err := a.api.AccountBalance(ctx, key)
	if err != nil {
		return tghelpers.SendText(c, "❌ Could not fetch your balance right now. Please try again later.")
	}

	// The username comes from the remote service and may carry markdown
	// specials.
	username, err := format.EscapeMarkdown(balance.Username, format.MarkdownV1, "")
	if err != nil {
		username = balance.Username
	}
	text := fmt.Sprintf(
		"💰 *Balance for %s*\n\n"+
			"💵 Current balance: $%.2f\n"+
			"🏧 Total withdrawn: $%.2f\n"+
			"👥 Referral earnings: $%.2f\n"+
			"🔗 Total links: %d",
		username, balance.Available, balance.Withdrawn, balance.Referrals, balance.TotalLinks,
	)
	return tghelpers.SendMD(c, text)
}

func (a *App) handleLogout(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	if err := a.users.Delete(ctx, userID); err != nil {
		return tghelpers.SendText(c, "❌ Logout failed. Please try again.")
	}
	a.sessions.Clear(userID)
	return tghelpers.SendText(c, "You have been logged out. Your API key was removed.")
}

// handleText is the fallback for plain text: rewrite links, or explain
// what to do when there are none.
func (a *App) handleText(c tele.Context) error {
	text := c.Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	key, ok, err := a.requireAPIKey(ctx, c)
	if !ok {
		return err
	}

	result := a.rewriter.Rewrite(ctx, text, key)
	return tghelpers.SendText(c, result.Text)
}

// handlePhoto rewrites links inside photo captions, re-sending the same
// photo with the rewritten caption.
func (a *App) handlePhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil || strings.TrimSpace(msg.Caption) == "" {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	key, ok, err := a.requireAPIKey(ctx, c)
	if !ok {
		return err
	}

	result := a.rewriter.Rewrite(ctx, msg.Caption, key)
	photo := *msg.Photo
	photo.Caption = result.Text
	return c.Send(&photo)
}
