package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/rajeshboy669/linxbot/core/telegram/callbacks"
	tghelpers "github.com/rajeshboy669/linxbot/core/telegram/helpers"
	"github.com/rajeshboy669/linxbot/core/telegram/keyboard"
	"github.com/rajeshboy669/linxbot/internal/linxapi"
	"github.com/rajeshboy669/linxbot/internal/withdraw"
)

// Callback uniques for the withdrawal keyboard.
const (
	cbMethod = "wd_method"
	cbCancel = "wd_cancel"
)

func (a *App) handleWithdraw(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key, ok, err := a.requireAPIKey(ctx, c)
	if !ok {
		return err
	}
	return a.renderReply(c, a.flow.Start(c.Sender().ID, key))
}

func (a *App) handleCancel(c tele.Context) error {
	userID := c.Sender().ID
	if !a.flow.InProgress(userID) {
		return tghelpers.SendText(c, "Nothing to cancel.")
	}
	return a.renderReply(c, a.flow.Cancel(userID))
}

func (a *App) handleAmountState(c tele.Context) error {
	if done, err := a.interceptCommand(c); done {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	return a.renderReply(c, a.flow.EnterAmount(ctx, c.Sender().ID, c.Text()))
}

func (a *App) handleMethodState(c tele.Context) error {
	if done, err := a.interceptCommand(c); done {
		return err
	}
	return a.renderReply(c, a.flow.MethodHint())
}

func (a *App) handleAccountState(c tele.Context) error {
	if done, err := a.interceptCommand(c); done {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	return a.renderReply(c, a.flow.EnterAccount(ctx, c.Sender().ID, c.Text()))
}

// interceptCommand lets /cancel and /withdraw act while a conversation
// holds the text route: cancel ends it, withdraw starts over.
func (a *App) interceptCommand(c tele.Context) (bool, error) {
	switch command(c.Text()) {
	case "/cancel":
		return true, a.renderReply(c, a.flow.Cancel(c.Sender().ID))
	case "/withdraw":
		return true, a.handleWithdraw(c)
	}
	return false, nil
}

// command extracts the leading /command token, dropping any @botname
// suffix; returns "" for plain text.
func command(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return ""
	}
	if i := strings.IndexAny(t, " \n"); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, '@'); i >= 0 {
		t = t[:i]
	}
	return t
}

func (a *App) handleMethodCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	methodID := callbacks.CallbackPayload(c)
	return a.renderReply(c, a.flow.SelectMethod(ctx, c.Sender().ID, methodID))
}

func (a *App) handleCancelCallback(c tele.Context) error {
	userID := c.Sender().ID
	if !a.flow.InProgress(userID) {
		return nil
	}
	reply := a.flow.Cancel(userID)
	return c.EditOrSend(reply.Text)
}

// renderReply maps a flow Reply onto the Telegram surface.
func (a *App) renderReply(c tele.Context, reply withdraw.Reply) error {
	if len(reply.Methods) > 0 {
		return tghelpers.SendText(c, reply.Text, &tele.SendOptions{
			ReplyMarkup: methodMarkup(reply.Methods),
		})
	}
	if reply.Cancelable {
		return tghelpers.SendText(c, reply.Text, &tele.SendOptions{
			ReplyMarkup: keyboard.SingleCancelMarkup(cbCancel),
		})
	}
	return tghelpers.SendText(c, reply.Text)
}

// methodMarkup lays out one button per payout method, two per row,
// with a cancel row underneath.
func methodMarkup(methods []linxapi.Method) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(methods))
	for _, m := range methods {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   m.Name,
			Unique: cbMethod,
			Data:   m.ID,
		})
	}
	rows := keyboard.ChunkInlineButtons(buttons, 2)
	rows = append(rows, []keyboard.InlineBtn{{Text: "❌ Cancel", Unique: cbCancel, Data: "cancel"}})
	return keyboard.InlineButtonsRows(rows...)
}
