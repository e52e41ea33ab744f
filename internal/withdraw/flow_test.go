package withdraw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajeshboy669/linxbot/core/telegram/state"
	"github.com/rajeshboy669/linxbot/internal/linxapi"
)

type fakeAPI struct {
	methods    []linxapi.Method
	methodsErr error

	submitErr   error
	submitMsg   string
	submitCalls int
	lastAmount  float64
	lastMethod  string
	lastAccount string
	methodCalls int
}

func (f *fakeAPI) PayoutMethods(ctx context.Context, apiKey string) ([]linxapi.Method, error) {
	f.methodCalls++
	return f.methods, f.methodsErr
}

func (f *fakeAPI) SubmitWithdrawal(ctx context.Context, apiKey string, amount float64, methodID, account string) (*linxapi.SubmitResult, error) {
	f.submitCalls++
	f.lastAmount = amount
	f.lastMethod = methodID
	f.lastAccount = account
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &linxapi.SubmitResult{Status: "success", Message: f.submitMsg}, nil
}

type fakeAccounts struct {
	saved     string
	has       bool
	savedBack string
	saveCalls int
}

func (f *fakeAccounts) SavedPayoutAccount(ctx context.Context, telegramID int64) (string, bool, error) {
	return f.saved, f.has, nil
}

func (f *fakeAccounts) SavePayoutAccount(ctx context.Context, telegramID int64, account string) error {
	f.saveCalls++
	f.savedBack = account
	return nil
}

const testUser int64 = 42

func newFlow(api *fakeAPI, accounts *fakeAccounts) (*Flow, state.Manager) {
	sessions := state.NewMemoryManager()
	return NewFlow(sessions, api, accounts), sessions
}

func startFlow(t *testing.T, f *Flow) {
	t.Helper()
	reply := f.Start(testUser, "key-1")
	assert.False(t, reply.Terminal)
	assert.True(t, reply.Cancelable)
}

var paypalMethod = linxapi.Method{ID: "paypal", Name: "PayPal", Status: "enabled", AccountRequired: true}
var creditMethod = linxapi.Method{ID: "credit", Name: "Site Credit", Status: "enabled", AccountRequired: false}

func TestInvalidAmountRepromptsWithoutRemoteCall(t *testing.T) {
	api := &fakeAPI{}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	for _, bad := range []string{"-5", "0", "abc", ""} {
		reply := f.EnterAmount(context.Background(), testUser, bad)
		assert.False(t, reply.Terminal, "input %q must not end the conversation", bad)
		assert.Contains(t, reply.Text, "valid amount")
	}
	assert.Equal(t, 0, api.methodCalls)
	assert.Equal(t, StateAmount, sessions.GetState(testUser))

	// The conversation is still alive and accepts a correction.
	api.methods = []linxapi.Method{paypalMethod}
	reply := f.EnterAmount(context.Background(), testUser, "10")
	assert.False(t, reply.Terminal)
	require.Len(t, reply.Methods, 1)
}

func TestMethodsFetchFailureEndsConversation(t *testing.T) {
	api := &fakeAPI{methodsErr: &linxapi.RemoteError{Message: "down"}}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	reply := f.EnterAmount(context.Background(), testUser, "10")
	assert.True(t, reply.Terminal)
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
}

func TestNoEnabledMethodsEndsConversation(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{
		{ID: "upi", Name: "UPI", Status: "disabled", AccountRequired: true},
	}}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	reply := f.EnterAmount(context.Background(), testUser, "10")
	assert.True(t, reply.Terminal)
	assert.Equal(t, 0, api.submitCalls)
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
}

func TestDisabledMethodsAreFilteredFromKeyboard(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{
		paypalMethod,
		{ID: "upi", Name: "UPI", Status: "disabled", AccountRequired: true},
		creditMethod,
	}}
	f, _ := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	reply := f.EnterAmount(context.Background(), testUser, "25")
	require.Len(t, reply.Methods, 2)
	assert.Equal(t, "paypal", reply.Methods[0].ID)
	assert.Equal(t, "credit", reply.Methods[1].ID)
}

func TestNoAccountMethodSubmitsImmediately(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{creditMethod}, submitMsg: "queued"}
	accounts := &fakeAccounts{}
	f, sessions := newFlow(api, accounts)
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "12.5")
	reply := f.SelectMethod(context.Background(), testUser, "credit")

	assert.True(t, reply.Terminal)
	assert.Contains(t, reply.Text, "✅")
	assert.Contains(t, reply.Text, "queued")
	assert.Equal(t, 1, api.submitCalls)
	assert.Equal(t, 12.5, api.lastAmount)
	assert.Equal(t, "credit", api.lastMethod)
	assert.Equal(t, "", api.lastAccount)
	assert.Equal(t, 0, accounts.saveCalls)
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
}

func TestSavedAccountSkipsAccountPrompt(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{paypalMethod}}
	accounts := &fakeAccounts{saved: "me@example.com", has: true}
	f, _ := newFlow(api, accounts)
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "10")
	reply := f.SelectMethod(context.Background(), testUser, "paypal")

	assert.True(t, reply.Terminal)
	assert.Equal(t, "me@example.com", api.lastAccount)
	assert.Equal(t, 1, api.submitCalls)
}

func TestAccountPromptThenSubmitSavesDescriptor(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{paypalMethod}}
	accounts := &fakeAccounts{}
	f, sessions := newFlow(api, accounts)
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "10")
	reply := f.SelectMethod(context.Background(), testUser, "paypal")
	assert.False(t, reply.Terminal)
	assert.Contains(t, reply.Text, "PayPal")
	assert.Equal(t, StateAccount, sessions.GetState(testUser))

	reply = f.EnterAccount(context.Background(), testUser, "  wallet-77 ")
	assert.True(t, reply.Terminal)
	assert.Equal(t, "  wallet-77 ", api.lastAccount)
	assert.Equal(t, 1, accounts.saveCalls)
	assert.Equal(t, "  wallet-77 ", accounts.savedBack)
}

func TestRemoteFailureMessageShownVerbatimAndSessionCleared(t *testing.T) {
	api := &fakeAPI{
		methods:   []linxapi.Method{creditMethod},
		submitErr: &linxapi.RemoteError{Message: "limit exceeded"},
	}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "1000")
	reply := f.SelectMethod(context.Background(), testUser, "credit")

	assert.True(t, reply.Terminal)
	assert.Equal(t, "❌ Withdrawal failed: limit exceeded", reply.Text)
	assert.Equal(t, 1, api.submitCalls, "exactly one submission attempt")
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
	assert.False(t, f.InProgress(testUser))

	// A fresh conversation starts clean after the failure.
	startFlow(t, f)
	assert.Equal(t, StateAmount, sessions.GetState(testUser))
}

func TestTransportFailureGetsGenericText(t *testing.T) {
	api := &fakeAPI{
		methods:   []linxapi.Method{creditMethod},
		submitErr: context.DeadlineExceeded,
	}
	f, _ := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "5")
	reply := f.SelectMethod(context.Background(), testUser, "credit")
	assert.True(t, reply.Terminal)
	assert.Equal(t, "❌ Withdrawal failed. Please try /withdraw again later.", reply.Text)
}

func TestSelectionOutsideSnapshotIsRejected(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{paypalMethod}}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)

	f.EnterAmount(context.Background(), testUser, "10")
	reply := f.SelectMethod(context.Background(), testUser, "bitcoin")

	assert.True(t, reply.Terminal)
	assert.Contains(t, reply.Text, "Invalid selection")
	assert.Equal(t, 0, api.submitCalls)
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
}

func TestStaleCallbackOutsideMethodStateIsRejected(t *testing.T) {
	api := &fakeAPI{}
	f, _ := newFlow(api, &fakeAccounts{})

	// No conversation at all: a leftover button press from a previous run.
	reply := f.SelectMethod(context.Background(), testUser, "paypal")
	assert.True(t, reply.Terminal)
	assert.Contains(t, reply.Text, "Invalid selection")
	assert.Equal(t, 0, api.submitCalls)
}

func TestCancelClearsSessionWithoutRemoteCalls(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{paypalMethod}}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)
	f.EnterAmount(context.Background(), testUser, "10")

	reply := f.Cancel(testUser)
	assert.True(t, reply.Terminal)
	assert.Equal(t, "Withdrawal cancelled.", reply.Text)
	assert.Equal(t, 0, api.submitCalls)
	assert.Equal(t, state.StateIdle, sessions.GetState(testUser))
}

func TestStartEvictsStaleConversation(t *testing.T) {
	api := &fakeAPI{methods: []linxapi.Method{paypalMethod}}
	f, sessions := newFlow(api, &fakeAccounts{})
	startFlow(t, f)
	f.EnterAmount(context.Background(), testUser, "10")
	assert.Equal(t, StateMethod, sessions.GetState(testUser))

	startFlow(t, f)
	assert.Equal(t, StateAmount, sessions.GetState(testUser))

	// The old snapshot is gone: the previous selection no longer works.
	reply := f.SelectMethod(context.Background(), testUser, "paypal")
	assert.True(t, reply.Terminal)
	assert.Equal(t, 0, api.submitCalls)
}
