package linxapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(Options{
		APIURL:     srv.URL + "/api",
		BalanceURL: srv.URL + "/balance",
		PayoutURL:  srv.URL + "/payout",
		HTTPClient: srv.Client(),
	})
	return c, srv
}

func TestShortenSuccess(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "k123", r.URL.Query().Get("api"))
		assert.Equal(t, "http://example.com/x", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"status":"success","shortenedUrl":"https://s.ly/abc"}`))
	}))
	defer srv.Close()

	short, err := c.Shorten(context.Background(), "k123", "http://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://s.ly/abc", short)
}

func TestShortenMissingURLIsFailure(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := c.Shorten(context.Background(), "bad", "http://example.com/x")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "invalid api key", remote.Message)
}

func TestShortenNonOKStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.Shorten(context.Background(), "k", "http://example.com/x")
	require.Error(t, err)
}

func TestShortenMalformedBody(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := c.Shorten(context.Background(), "k", "http://example.com/x")
	require.Error(t, err)
}

func TestShortenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(Options{APIURL: srv.URL, HTTPClient: srv.Client()})
	srv.Close()

	_, err := c.Shorten(context.Background(), "k", "http://example.com/x")
	require.Error(t, err)
}

func TestPayoutMethods(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payout/methods", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "success",
			"methods": [
				{"id":"paypal","name":"PayPal","status":"enabled","account_required":true},
				{"id":"upi","name":"UPI","status":"disabled","account_required":true},
				{"id":"credit","name":"Site Credit","status":"enabled","account_required":false}
			]
		}`))
	}))
	defer srv.Close()

	methods, err := c.PayoutMethods(context.Background(), "k")
	require.NoError(t, err)
	require.Len(t, methods, 3)
	assert.True(t, methods[0].Enabled())
	assert.True(t, methods[0].AccountRequired)
	assert.False(t, methods[1].Enabled())
	assert.True(t, methods[2].Enabled())
	assert.False(t, methods[2].AccountRequired)
}

func TestPayoutMethodsRemoteFailure(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"maintenance"}`))
	}))
	defer srv.Close()

	_, err := c.PayoutMethods(context.Background(), "k")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "maintenance", remote.Message)
}

func TestSubmitWithdrawal(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payout/submit", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("api"))
		assert.Equal(t, "10.5", q.Get("amount"))
		assert.Equal(t, "paypal", q.Get("method"))
		assert.Equal(t, "me@example.com", q.Get("account"))
		_, _ = w.Write([]byte(`{"status":"success","message":"queued"}`))
	}))
	defer srv.Close()

	res, err := c.SubmitWithdrawal(context.Background(), "k", 10.5, "paypal", "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Message)
}

func TestSubmitWithdrawalOmitsEmptyAccount(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("account"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	_, err := c.SubmitWithdrawal(context.Background(), "k", 5, "credit", "")
	require.NoError(t, err)
}

func TestSubmitWithdrawalRemoteError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := c.SubmitWithdrawal(context.Background(), "k", 1000, "paypal", "acct")
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "limit exceeded", remote.Message)
}

func TestAccountBalance(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","username":"alice","balance":12.34,"withdrawn":5,"referrals":1.5,"total_links":42}`))
	}))
	defer srv.Close()

	b, err := c.AccountBalance(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "alice", b.Username)
	assert.InDelta(t, 12.34, b.Available, 1e-9)
	assert.EqualValues(t, 42, b.TotalLinks)
}
