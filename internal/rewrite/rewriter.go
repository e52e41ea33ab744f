// Package rewrite locates link-shaped substrings in message text and
// replaces each with its monetized counterpart, preserving all other
// text byte for byte.
package rewrite

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/rajeshboy669/linxbot/core/logger"
	"log/slog"
)

// linkPattern matches scheme://non-whitespace+ occurrences.
var linkPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://\S+`)

// excludedHosts are the chat platform's own domains; links pointing at
// them pass through unchanged.
var excludedHosts = []string{"t.me", "telegram.me", "telegram.dog", "telesco.pe"}

// Resolver shortens a single eligible link. Implemented by
// linxapi.Client; tests substitute a fake.
type Resolver interface {
	Shorten(ctx context.Context, apiKey, link string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, apiKey, link string) (string, error)

// Shorten calls the underlying function.
func (f ResolverFunc) Shorten(ctx context.Context, apiKey, link string) (string, error) {
	return f(ctx, apiKey, link)
}

// Replacement records one successful original → short substitution.
type Replacement struct {
	Original string
	Short    string
}

// Result is the outcome of one Rewrite call.
type Result struct {
	// Text is the reassembled message. When nothing could be shortened
	// it equals the input.
	Text string
	// Replaced lists the substitutions that actually happened, in
	// original text order.
	Replaced []Replacement
}

// occurrence is a located link with its span in the source text.
type occurrence struct {
	start, end  int
	original    string
	replacement string
	excluded    bool
}

// Rewriter shortens every eligible link in a message concurrently.
type Rewriter struct {
	resolver Resolver
}

// New builds a Rewriter on top of the given resolver.
func New(resolver Resolver) *Rewriter {
	return &Rewriter{resolver: resolver}
}

// Rewrite never fails: any per-link resolution error leaves that
// occurrence unchanged and does not affect the others. Replacements are
// applied by span, so duplicate identical link strings are handled
// independently.
func (rw *Rewriter) Rewrite(ctx context.Context, text, apiKey string) Result {
	spans := linkPattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return Result{Text: text}
	}

	occs := make([]occurrence, len(spans))
	eligible := 0
	for i, span := range spans {
		occ := occurrence{start: span[0], end: span[1]}
		occ.original = text[occ.start:occ.end]
		occ.replacement = occ.original
		occ.excluded = isPlatformLink(occ.original)
		if !occ.excluded {
			eligible++
		}
		occs[i] = occ
	}

	if eligible > 0 {
		var wg sync.WaitGroup
		for i := range occs {
			if occs[i].excluded {
				continue
			}
			wg.Add(1)
			go func(occ *occurrence) {
				defer wg.Done()
				short, err := rw.resolver.Shorten(ctx, apiKey, occ.original)
				if err != nil {
					logger.Debug(ctx, "service.rewrite", "resolve.fail",
						slog.String("status", "fail"),
						slog.String("err", err.Error()),
					)
					return
				}
				if strings.TrimSpace(short) != "" {
					occ.replacement = short
				}
			}(&occs[i])
		}
		wg.Wait()
	}

	var b strings.Builder
	b.Grow(len(text))
	var replaced []Replacement
	cursor := 0
	for _, occ := range occs {
		b.WriteString(text[cursor:occ.start])
		b.WriteString(occ.replacement)
		cursor = occ.end
		if !occ.excluded && occ.replacement != occ.original {
			replaced = append(replaced, Replacement{Original: occ.original, Short: occ.replacement})
		}
	}
	b.WriteString(text[cursor:])

	logger.Debug(ctx, "service.rewrite", "rewrite.done",
		slog.String("status", "ok"),
		slog.Int("links_total", len(occs)),
		slog.Int("links_eligible", eligible),
		slog.Int("links_shortened", len(replaced)),
	)
	return Result{Text: b.String(), Replaced: replaced}
}

// isPlatformLink reports whether the link points at the chat platform's
// own domain. Unparseable links count as eligible; resolution failure
// will preserve them anyway.
func isPlatformLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range excludedHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
