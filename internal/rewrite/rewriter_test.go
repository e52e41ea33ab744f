package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticResolver(mapping map[string]string) Resolver {
	return ResolverFunc(func(_ context.Context, _, link string) (string, error) {
		if short, ok := mapping[link]; ok {
			return short, nil
		}
		return "", errors.New("unknown link")
	})
}

func TestRewriteReplacesEligibleAndSkipsPlatformLinks(t *testing.T) {
	rw := New(staticResolver(map[string]string{
		"http://example.com/x": "https://s.ly/abc",
	}))

	in := "check this out http://example.com/x and https://t.me/foo"
	res := rw.Rewrite(context.Background(), in, "key")

	assert.Equal(t, "check this out https://s.ly/abc and https://t.me/foo", res.Text)
	require.Len(t, res.Replaced, 1)
	assert.Equal(t, "http://example.com/x", res.Replaced[0].Original)
	assert.Equal(t, "https://s.ly/abc", res.Replaced[0].Short)
}

func TestRewritePreservesNonLinkText(t *testing.T) {
	rw := New(staticResolver(map[string]string{
		"https://a.example/1": "https://s.ly/1",
		"https://b.example/2": "https://s.ly/2",
	}))

	in := "prefix https://a.example/1 middle https://b.example/2 suffix"
	res := rw.Rewrite(context.Background(), in, "key")

	assert.Equal(t, "prefix https://s.ly/1 middle https://s.ly/2 suffix", res.Text)
}

func TestRewriteKeepsOriginalOnResolverFailure(t *testing.T) {
	rw := New(ResolverFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("service down")
	}))

	in := "see https://a.example/1 and https://b.example/2 thanks"
	res := rw.Rewrite(context.Background(), in, "key")

	assert.Equal(t, in, res.Text)
	assert.Empty(t, res.Replaced)
}

func TestRewriteFailureIsIsolatedPerLink(t *testing.T) {
	rw := New(ResolverFunc(func(_ context.Context, _, link string) (string, error) {
		if strings.Contains(link, "bad") {
			return "", errors.New("boom")
		}
		return "https://s.ly/ok", nil
	}))

	res := rw.Rewrite(context.Background(), "https://bad.example/x https://good.example/y", "key")

	assert.Equal(t, "https://bad.example/x https://s.ly/ok", res.Text)
	require.Len(t, res.Replaced, 1)
}

func TestRewriteDuplicateLinksReplacedBySpan(t *testing.T) {
	// The same literal link appears twice; each occurrence must get its
	// own resolution, applied by position, not by substring value.
	var n atomic.Int64
	rw := New(ResolverFunc(func(context.Context, string, string) (string, error) {
		return fmt.Sprintf("https://s.ly/%d", n.Add(1)), nil
	}))

	res := rw.Rewrite(context.Background(), "https://dup.example/x and https://dup.example/x", "key")

	assert.NotContains(t, res.Text, "dup.example")
	require.Len(t, res.Replaced, 2)
	assert.Equal(t, " and ", strings.TrimPrefix(strings.TrimSuffix(res.Text, res.Replaced[1].Short), res.Replaced[0].Short))
	assert.NotEqual(t, res.Replaced[0].Short, res.Replaced[1].Short)
}

func TestRewriteNoLinks(t *testing.T) {
	var called atomic.Bool
	rw := New(ResolverFunc(func(context.Context, string, string) (string, error) {
		called.Store(true)
		return "", nil
	}))

	res := rw.Rewrite(context.Background(), "no links here, just text", "key")

	assert.Equal(t, "no links here, just text", res.Text)
	assert.False(t, called.Load())
}

func TestRewriteResolvesConcurrently(t *testing.T) {
	// All resolutions block on the same gate; if they ran sequentially
	// the test would deadlock.
	const links = 4
	gate := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(links)

	rw := New(ResolverFunc(func(context.Context, string, string) (string, error) {
		arrived.Done()
		<-gate
		return "https://s.ly/x", nil
	}))

	go func() {
		arrived.Wait()
		close(gate)
	}()

	in := "https://a.example/1 https://a.example/2 https://a.example/3 https://a.example/4"
	res := rw.Rewrite(context.Background(), in, "key")
	assert.Equal(t, links, strings.Count(res.Text, "https://s.ly/x"))
}

func TestIsPlatformLink(t *testing.T) {
	cases := []struct {
		link string
		want bool
	}{
		{"https://t.me/foo", true},
		{"https://telegram.me/foo", true},
		{"https://sub.t.me/foo", true},
		{"https://t.me.evil.example/foo", false},
		{"https://example.com/t.me", false},
		{"http://example.com/x", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isPlatformLink(tc.link), tc.link)
	}
}
