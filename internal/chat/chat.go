// Package chat is the question and summary side panel. Every request is a
// single round trip; answers are appended to an in-memory transcript.
package chat

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/util"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status int

const (
	Done Status = iota
	Pending
	Failed
)

const (
	SummaryShort    = "short"
	SummaryDetailed = "detailed"
	SummaryBullets  = "bullet-points"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type Entry struct {
	ID       string
	Role     Role
	SourceID string
	Text     string
	Status   Status
	Err      error
	At       time.Time
}

// HTML renders the entry text as markdown. Raw HTML in the answer is not
// passed through.
func (e Entry) HTML() (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(e.Text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Backend is the part of the API client the panel needs.
type Backend interface {
	ChatPage(ctx context.Context, in api.ChatRequest) (string, error)
	ContentSummary(ctx context.Context, in api.SummaryRequest) (string, error)
}

type Panel struct {
	backend   Backend
	logger    *zap.Logger
	sessionID string

	mu      sync.Mutex
	entries []Entry
}

func New(backend Backend, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{backend: backend, logger: logger, sessionID: util.NewID("chat")}
}

// Ask sends a question about sourceID. An empty question is rejected before
// anything is recorded or sent.
func (p *Panel) Ask(ctx context.Context, sourceID, question string) (Entry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Entry{}, &api.ValidationError{Fields: map[string]string{"question": "question is required"}}
	}
	req := api.ChatRequest{SourceID: sourceID, Question: question, SessionID: p.sessionID}
	return p.roundTrip(sourceID, question, func() (string, error) {
		return p.backend.ChatPage(ctx, req)
	})
}

// Summarize asks for a summary of sourceID. An empty summaryType means
// SummaryShort.
func (p *Panel) Summarize(ctx context.Context, sourceID, summaryType string) (Entry, error) {
	if strings.TrimSpace(sourceID) == "" {
		return Entry{}, &api.ValidationError{Fields: map[string]string{"sourceId": "sourceId is required"}}
	}
	if strings.TrimSpace(summaryType) == "" {
		summaryType = SummaryShort
	}
	req := api.SummaryRequest{SourceID: sourceID, SummaryType: summaryType}
	return p.roundTrip(sourceID, "Summarize ("+summaryType+")", func() (string, error) {
		return p.backend.ContentSummary(ctx, req)
	})
}

func (p *Panel) roundTrip(sourceID, prompt string, call func() (string, error)) (Entry, error) {
	now := time.Now()
	pending := Entry{
		ID: util.NewID("msg"), Role: RoleAssistant, SourceID: sourceID, Status: Pending, At: now,
	}
	p.mu.Lock()
	p.entries = append(p.entries, Entry{
		ID: util.NewID("msg"), Role: RoleUser, SourceID: sourceID, Text: prompt, At: now,
	}, pending)
	p.mu.Unlock()

	answer, err := call()

	result := pending
	result.At = time.Now()
	if err != nil {
		result.Status = Failed
		result.Err = err
		result.Text = api.Describe(err)
		p.logger.Warn("chat request failed", zap.String("source_id", sourceID), zap.Error(err))
	} else {
		result.Status = Done
		result.Text = answer
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// The transcript may have been cleared while the request was in flight;
	// the answer is then returned to the caller but not recorded.
	for i := range p.entries {
		if p.entries[i].ID == pending.ID {
			p.entries[i] = result
			break
		}
	}
	return result, err
}

// Entries returns a copy of the transcript, oldest first.
func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...)
}

// Loading reports whether any request is still waiting for its answer.
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.Status == Pending {
			return true
		}
	}
	return false
}

func (p *Panel) Clear() {
	p.mu.Lock()
	p.entries = nil
	p.mu.Unlock()
}
