package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/rajeshboy669/linxbot/core/telegram/helpers"
)

// tempAPIKey caches the credential inside the user's session so repeat
// messages avoid a store round trip.
const tempAPIKey = "api_key"

const missingKeyText = "Please set your API key first with /setapi <API_KEY>.\nYou can find it in your account dashboard."

// resolveAPIKey returns the user's credential, checking the session
// cache before the store. It must be consulted before any remote call.
func (a *App) resolveAPIKey(ctx context.Context, userID int64) (string, bool) {
	if v, ok := a.sessions.GetTemp(userID, tempAPIKey); ok {
		if key, ok := v.(string); ok && key != "" {
			return key, true
		}
	}

	u, err := tghelpers.CurrentUser(ctx, a.users, userID)
	if err != nil {
		// Absent record and lookup failure both mean "no credential";
		// the caller prompts for registration.
		return "", false
	}
	if u == nil || u.APIKey == "" {
		return "", false
	}
	a.sessions.SetTemp(userID, tempAPIKey, u.APIKey)
	return u.APIKey, true
}

// requireAPIKey resolves the credential or prompts for registration.
func (a *App) requireAPIKey(ctx context.Context, c tele.Context) (string, bool, error) {
	key, ok := a.resolveAPIKey(ctx, c.Sender().ID)
	if !ok {
		return "", false, tghelpers.SendText(c, missingKeyText)
	}
	return key, true, nil
}
