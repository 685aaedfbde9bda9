// Package transcript implements the chat transcript synchronization core:
// an ordered, deduplicated message store, cursor-based backward pagination,
// and scroll-anchor preservation across asynchronous history insertions.
package transcript

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lifeos/internal/models"
)

// replyFallback stands in for an empty or null reply payload.
const replyFallback = "I couldn't come up with a reply. Please try again."

// Store holds the ordered transcript and the lifecycle of each message.
// It is the single source of truth rendered by the view.
//
// The store is not goroutine-safe: it is owned by the UI update loop, and all
// mutation must happen there. Async work hands results back as messages
// instead of mutating the store directly.
type Store struct {
	logger   *slog.Logger
	messages []models.Message
	onChange func()
}

// NewStore creates an empty transcript store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// OnChange registers a callback invoked after every mutation, so the view
// layer can re-render. At most one callback is supported.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Messages returns a copy of the transcript, oldest first.
func (s *Store) Messages() []models.Message {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of transcript entries.
func (s *Store) Len() int {
	return len(s.messages)
}

// Sending reports whether an assistant reply is outstanding.
func (s *Store) Sending() bool {
	return s.pendingIndex() >= 0
}

// pendingIndex returns the index of the trailing pending placeholder, or -1.
// The placeholder is always the last entry when present.
func (s *Store) pendingIndex() int {
	if n := len(s.messages); n > 0 && s.messages[n-1].State == models.StatePending {
		return n - 1
	}
	return -1
}

// AppendUserMessage appends a confirmed user message and a pending assistant
// placeholder at the tail, and returns the user message. It fails with
// ErrEmptyMessage if text is blank and ErrReplyPending while a reply is
// outstanding; both are rejected before any network activity.
func (s *Store) AppendUserMessage(text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if s.Sending() {
		return models.Message{}, ErrReplyPending
	}

	now := time.Now()
	user := models.Message{
		ID:        models.NewLocalID(),
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: now,
		State:     models.StateConfirmed,
	}
	placeholder := models.Message{
		ID:        models.NewLocalID(),
		Role:      models.RoleAssistant,
		CreatedAt: now,
		State:     models.StatePending,
	}

	s.messages = append(s.messages, user, placeholder)
	s.notify()
	return user, nil
}

// ResolvePending transitions the trailing pending placeholder to confirmed
// with the given reply, substituting a readable fallback when the reply is
// empty. A missing placeholder is logged and ignored, so a double resolution
// cannot corrupt the transcript.
func (s *Store) ResolvePending(reply string) {
	i := s.pendingIndex()
	if i < 0 {
		s.logger.Warn("resolve with no pending message", "reply_len", len(reply))
		return
	}
	if reply == "" {
		reply = replyFallback
	}
	s.messages[i].Content = reply
	s.messages[i].State = models.StateConfirmed
	s.notify()
}

// ResolvePendingWithError transitions the trailing pending placeholder to
// errored, carrying a human-readable description shown inline in the
// transcript. Mutually exclusive with ResolvePending for the same placeholder.
func (s *Store) ResolvePendingWithError(errText string) {
	i := s.pendingIndex()
	if i < 0 {
		s.logger.Warn("resolve error with no pending message", "error", errText)
		return
	}
	s.messages[i].Content = errText
	s.messages[i].State = models.StateErrored
	s.notify()
}

// PrependHistory inserts msgs as a contiguous prefix before the current first
// entry. The batch must be in ascending chronological order and must not
// share an id with any existing entry; a violation is a caller bug reported
// as *InvariantError, never silently repaired.
func (s *Store) PrependHistory(msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.checkPrefix(msgs); err != nil {
		s.logger.Error("rejecting history prefix", "error", err)
		return err
	}

	merged := make([]models.Message, 0, len(msgs)+len(s.messages))
	merged = append(merged, msgs...)
	merged = append(merged, s.messages...)
	s.messages = merged
	s.notify()
	return nil
}

// ReplaceAll replaces the entire transcript. Used only for the first page
// load, before any optimistic entries exist.
func (s *Store) ReplaceAll(msgs []models.Message) error {
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			err := &InvariantError{Reason: fmt.Sprintf("duplicate id %q in initial page", m.ID)}
			s.logger.Error("rejecting initial page", "error", err)
			return err
		}
		seen[m.ID] = struct{}{}
	}

	s.messages = make([]models.Message, len(msgs))
	copy(s.messages, msgs)
	s.notify()
	return nil
}

func (s *Store) checkPrefix(msgs []models.Message) error {
	seen := make(map[string]struct{}, len(s.messages)+len(msgs))
	for _, m := range s.messages {
		seen[m.ID] = struct{}{}
	}
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			return &InvariantError{Reason: fmt.Sprintf("duplicate id %q in history prefix", m.ID)}
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
