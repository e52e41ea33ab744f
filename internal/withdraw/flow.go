// Package withdraw implements the multi-turn payout negotiation:
// amount entry, method selection against a fresh server-side snapshot,
// optional account collection, and a single-attempt submission.
//
// Transitions are methods on Flow that take user input and return a
// Reply value; the Telegram layer only renders Replies. Session data
// lives in the core FSM manager and is discarded unconditionally at
// every terminal outcome.
package withdraw

import (
	"context"
	"errors"
	"fmt"

	"github.com/rajeshboy669/linxbot/core/logger"
	tghelpers "github.com/rajeshboy669/linxbot/core/telegram/helpers"
	"github.com/rajeshboy669/linxbot/core/telegram/state"
	"github.com/rajeshboy669/linxbot/internal/linxapi"
	"log/slog"
)

// Conversation states. Method selection arrives as a callback, but the
// state is still tracked so stale button presses can be rejected.
const (
	StateAmount  state.State = "withdraw_amount"
	StateMethod  state.State = "withdraw_method"
	StateAccount state.State = "withdraw_account"
)

// Session temp keys.
const (
	tempAPIKey  = "wd_api_key"
	tempAmount  = "wd_amount"
	tempMethods = "wd_methods"
	tempMethod  = "wd_method"
)

// PayoutAPI is the slice of the remote client the flow depends on.
type PayoutAPI interface {
	PayoutMethods(ctx context.Context, apiKey string) ([]linxapi.Method, error)
	SubmitWithdrawal(ctx context.Context, apiKey string, amount float64, methodID, account string) (*linxapi.SubmitResult, error)
}

// Accounts is the slice of the credential store the flow depends on.
type Accounts interface {
	SavedPayoutAccount(ctx context.Context, telegramID int64) (string, bool, error)
	SavePayoutAccount(ctx context.Context, telegramID int64, account string) error
}

// Reply tells the transport layer what to render after a transition.
type Reply struct {
	Text string
	// Methods is non-empty when the user must pick a payout method.
	Methods []linxapi.Method
	// Terminal marks that the conversation ended and the session is gone.
	Terminal bool
	// Cancelable asks for a cancel button next to the prompt.
	Cancelable bool
}

// Flow drives one withdrawal conversation per user.
type Flow struct {
	sessions state.Manager
	api      PayoutAPI
	accounts Accounts
}

// NewFlow wires the flow to its collaborators.
func NewFlow(sessions state.Manager, api PayoutAPI, accounts Accounts) *Flow {
	return &Flow{sessions: sessions, api: api, accounts: accounts}
}

// InProgress reports whether the user has an active withdrawal.
func (f *Flow) InProgress(userID int64) bool {
	switch f.sessions.GetState(userID) {
	case StateAmount, StateMethod, StateAccount:
		return true
	}
	return false
}

// Start opens a fresh conversation, evicting any stale one first.
func (f *Flow) Start(userID int64, apiKey string) Reply {
	f.sessions.Clear(userID)
	f.sessions.SetState(userID, StateAmount)
	f.sessions.SetTemp(userID, tempAPIKey, apiKey)
	return Reply{
		Text:       "💸 How much would you like to withdraw?\n\nSend a positive amount, for example 10.50.",
		Cancelable: true,
	}
}

// EnterAmount consumes the user's reply in the amount state. Bad input
// re-prompts in place; a valid amount fetches the method snapshot.
func (f *Flow) EnterAmount(ctx context.Context, userID int64, input string) Reply {
	amount, ok := tghelpers.ParseAmount(input)
	if !ok {
		return Reply{
			Text:       "⚠️ That doesn't look like a valid amount. Send a positive number, for example 10.50.",
			Cancelable: true,
		}
	}

	apiKey, ok := f.apiKey(userID)
	if !ok {
		return f.fail(userID, "❌ Your session expired. Please start again with /withdraw.")
	}

	methods, err := f.api.PayoutMethods(ctx, apiKey)
	if err != nil {
		logger.Warn(ctx, "service.withdraw", "methods.fetch",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return f.fail(userID, "❌ Could not load payout methods right now. Please try /withdraw again later.")
	}

	enabled := methods[:0:0]
	for _, m := range methods {
		if m.Enabled() {
			enabled = append(enabled, m)
		}
	}
	if len(enabled) == 0 {
		return f.fail(userID, "❌ No payout methods are available at the moment. Please try again later.")
	}

	f.sessions.SetTemp(userID, tempAmount, amount)
	f.sessions.SetTemp(userID, tempMethods, enabled)
	f.sessions.SetState(userID, StateMethod)

	logger.Info(ctx, "service.withdraw", "amount.accepted",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("amount", amount),
		slog.Int("count", len(enabled)),
	)
	return Reply{
		Text:       fmt.Sprintf("Choose a payout method for $%.2f:", amount),
		Methods:    enabled,
		Cancelable: true,
	}
}

// SelectMethod consumes a method button press. The selection must be in
// the snapshot taken this conversation; anything else is treated as a
// stale or forged interaction and terminates the conversation.
func (f *Flow) SelectMethod(ctx context.Context, userID int64, methodID string) Reply {
	if f.sessions.GetState(userID) != StateMethod {
		return f.fail(userID, "⚠️ Invalid selection. Please start again with /withdraw.")
	}

	method, ok := f.snapshotMethod(userID, methodID)
	if !ok {
		logger.Warn(ctx, "service.withdraw", "method.invalid",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("method_id", logger.SanitizeLimit(methodID, 64)),
		)
		return f.fail(userID, "⚠️ Invalid selection. Please start again with /withdraw.")
	}

	f.sessions.SetTemp(userID, tempMethod, method)

	if method.AccountRequired {
		saved, has, err := f.accounts.SavedPayoutAccount(ctx, userID)
		if err != nil {
			logger.Warn(ctx, "service.withdraw", "account.lookup",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		if has {
			return f.submit(ctx, userID, saved)
		}
		// No saved descriptor (or the lookup failed): ask for one.
		f.sessions.SetState(userID, StateAccount)
		return Reply{
			Text:       fmt.Sprintf("🏦 Send the account (wallet, e-mail or number) to receive the %s payout:", method.Name),
			Cancelable: true,
		}
	}

	return f.submit(ctx, userID, "")
}

// EnterAccount consumes the free-form account descriptor, verbatim.
func (f *Flow) EnterAccount(ctx context.Context, userID int64, input string) Reply {
	if f.sessions.GetState(userID) != StateAccount {
		return f.fail(userID, "⚠️ Invalid selection. Please start again with /withdraw.")
	}
	return f.submit(ctx, userID, input)
}

// MethodHint is returned when the user types text while a method choice
// is pending; the conversation stays where it is.
func (f *Flow) MethodHint() Reply {
	return Reply{Text: "Please pick a payout method using the buttons above, or /cancel to stop."}
}

// Cancel tears the conversation down with no remote calls.
func (f *Flow) Cancel(userID int64) Reply {
	f.sessions.Clear(userID)
	return Reply{Text: "Withdrawal cancelled.", Terminal: true}
}

// submit performs the single-attempt submission and ends the
// conversation either way.
func (f *Flow) submit(ctx context.Context, userID int64, account string) Reply {
	apiKey, okKey := f.apiKey(userID)
	amount, okAmount := f.amount(userID)
	method, okMethod := f.chosenMethod(userID)
	if !okKey || !okAmount || !okMethod {
		return f.fail(userID, "❌ Your session expired. Please start again with /withdraw.")
	}

	result, err := f.api.SubmitWithdrawal(ctx, apiKey, amount, method.ID, account)
	if err != nil {
		var remote *linxapi.RemoteError
		text := "❌ Withdrawal failed. Please try /withdraw again later."
		if errors.As(err, &remote) && remote.Message != "" {
			text = "❌ Withdrawal failed: " + remote.Message
		}
		logger.Warn(ctx, "service.withdraw", "submit",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.Float64("amount", amount),
			slog.String("method_id", method.ID),
			slog.String("err", err.Error()),
		)
		return f.fail(userID, text)
	}

	if account != "" {
		if err := f.accounts.SavePayoutAccount(ctx, userID, account); err != nil {
			logger.Warn(ctx, "service.withdraw", "account.save",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}

	logger.Info(ctx, "service.withdraw", "submit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("amount", amount),
		slog.String("method_id", method.ID),
	)

	text := fmt.Sprintf("✅ Withdrawal of $%.2f via %s submitted.", amount, method.Name)
	if result != nil && result.Message != "" {
		text += "\n" + result.Message
	}
	f.sessions.Clear(userID)
	return Reply{Text: text, Terminal: true}
}

// fail ends the conversation with the given user-facing text.
func (f *Flow) fail(userID int64, text string) Reply {
	f.sessions.Clear(userID)
	return Reply{Text: text, Terminal: true}
}

func (f *Flow) apiKey(userID int64) (string, bool) {
	v, ok := f.sessions.GetTemp(userID, tempAPIKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func (f *Flow) amount(userID int64) (float64, bool) {
	v, ok := f.sessions.GetTemp(userID, tempAmount)
	if !ok {
		return 0, false
	}
	a, ok := v.(float64)
	return a, ok
}

func (f *Flow) chosenMethod(userID int64) (linxapi.Method, bool) {
	v, ok := f.sessions.GetTemp(userID, tempMethod)
	if !ok {
		return linxapi.Method{}, false
	}
	m, ok := v.(linxapi.Method)
	return m, ok
}

func (f *Flow) snapshotMethod(userID int64, methodID string) (linxapi.Method, bool) {
	v, ok := f.sessions.GetTemp(userID, tempMethods)
	if !ok {
		return linxapi.Method{}, false
	}
	methods, ok := v.([]linxapi.Method)
	if !ok {
		return linxapi.Method{}, false
	}
	for _, m := range methods {
		if m.ID == methodID {
			return m, true
		}
	}
	return linxapi.Method{}, false
}
