// Package tui provides the interactive chat view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"lifeos/internal/client"
	"lifeos/internal/models"
	"lifeos/internal/transcript"
)

const (
	inputHeight    = 3
	chromeHeight   = 4 // header + status + borders around the input
	sendTimeout    = 2 * time.Minute
	historyTimeout = 30 * time.Second
	spinInterval   = 120 * time.Millisecond
)

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// replyMsg carries the outcome of a send round trip.
type replyMsg struct {
	reply string
	err   error
}

// historyMsg carries the outcome of a history page fetch.
type historyMsg struct {
	page  int
	batch []models.Message
	err   error
}

// spinTickMsg advances the busy spinner.
type spinTickMsg time.Time

// viewportRegion adapts the viewport to the anchor coordinator, with lines
// as the extent unit.
type viewportRegion struct {
	vp *viewport.Model
}

var _ transcript.ScrollRegion = viewportRegion{}

func (r viewportRegion) ContentHeight() int { return r.vp.TotalLineCount() }
func (r viewportRegion) Offset() int        { return r.vp.YOffset() }
func (r viewportRegion) SetOffset(n int)    { r.vp.SetYOffset(n) }
func (r viewportRegion) GotoBottom()        { r.vp.GotoBottom() }

// chatModel is the bubbletea model for the chat session.
type chatModel struct {
	api     *client.Client
	store   *transcript.Store
	pager   *transcript.Pager
	anchors *transcript.AnchorCoordinator
	logger  *slog.Logger

	vp    viewport.Model
	input textarea.Model
	theme Theme

	width      int
	height     int
	chatHeight int
	ready      bool
	quitting   bool
	spinPos    int
	anchor     *transcript.AnchorToken
}

// newChatModel creates the chat model and its transcript core.
func newChatModel(api *client.Client, pageSize int, logger *slog.Logger) chatModel {
	store := transcript.NewStore(logger)
	fetch := transcript.FetcherFunc(func(ctx context.Context, page, size int) ([]models.Message, error) {
		return api.GetMessages(ctx, page, size)
	})
	pager := transcript.NewPager(store, fetch, pageSize, logger)

	ta := textarea.New()
	ta.Placeholder = "Type your message... (Enter to send, PgUp for older messages)"
	ta.Prompt = "▍ "
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)

	return chatModel{
		api:     api,
		store:   store,
		pager:   pager,
		anchors: transcript.NewAnchorCoordinator(logger),
		logger:  logger,
		input:   ta,
		theme:   defaultTheme,
		width:   80,
		height:  24,
	}
}

// Init focuses the input and kicks off the first history load.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.startHistoryLoad())
}

// startHistoryLoad reserves the pager's in-flight slot, captures the scroll
// anchor, and returns the fetch command. Returns nil when the request is
// dropped by the guard.
func (m *chatModel) startHistoryLoad() tea.Cmd {
	page, ok := m.pager.Begin()
	if !ok {
		return nil
	}

	// Anchor before the fetch is dispatched; the first page has nothing to
	// anchor and scrolls to bottom on arrival instead.
	if page > 1 && m.ready {
		token := m.anchors.Begin(viewportRegion{&m.vp})
		m.anchor = &token
	}

	pager := m.pager
	return tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
			defer cancel()
			batch, err := pager.Fetch(ctx, page)
			return historyMsg{page: page, batch: batch, err: err}
		},
		m.spinTick(),
	)
}

// sendCmd posts the user turn and returns the reply outcome.
func (m *chatModel) sendCmd(text string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		reply, err := api.SendMessage(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m *chatModel) spinTick() tea.Cmd {
	return tea.Tick(spinInterval, func(t time.Time) tea.Msg {
		return spinTickMsg(t)
	})
}

func (m *chatModel) busy() bool {
	return m.store.Sending() || m.pager.Loading()
}

// pageStep is one keyboard page of scrolling, leaving a line of overlap.
func (m *chatModel) pageStep() int {
	if m.chatHeight > 1 {
		return m.chatHeight - 1
	}
	return 1
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.chatHeight = m.height - inputHeight - chromeHeight
		if !m.ready {
			m.vp = viewport.New(
				viewport.WithWidth(m.width),
				viewport.WithHeight(m.chatHeight),
			)
			m.ready = true
		} else {
			m.vp.SetWidth(m.width)
			m.vp.SetHeight(m.chatHeight)
		}
		m.input.SetWidth(m.width - 2)
		m.refreshViewport()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case replyMsg:
		if m.quitting {
			return m, nil
		}
		if msg.err != nil {
			m.store.ResolvePendingWithError(describeSendFailure(msg.err))
		} else {
			m.store.ResolvePending(msg.reply)
		}
		m.refreshViewport()
		m.vp.GotoBottom()
		return m, nil

	case historyMsg:
		if m.quitting {
			return m, nil
		}
		if err := m.pager.Apply(msg.page, msg.batch, msg.err); err != nil {
			// Retryable: the spinner stops, the next scroll-to-top tries again.
			m.logger.Warn("history load failed", "page", msg.page, "error", err)
			m.anchor = nil
			return m, nil
		}
		m.refreshViewport()
		region := viewportRegion{&m.vp}
		if msg.page == 1 {
			m.anchors.RestoreInitial(region)
		} else if m.anchor != nil {
			m.anchors.Restore(*m.anchor, region)
		}
		m.anchor = nil
		return m, nil

	case spinTickMsg:
		if !m.busy() {
			return m, nil
		}
		m.spinPos = (m.spinPos + 1) % len(spinFrames)
		m.refreshViewport()
		return m, m.spinTick()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "pgup", "ctrl+u":
		m.vp.SetYOffset(m.vp.YOffset() - m.pageStep())
		// Reaching the top asks for the next page of older history; the
		// pager drops the request when one is already in flight.
		if m.vp.AtTop() && m.pager.HasMore() {
			cmd := m.startHistoryLoad()
			return m, cmd
		}
		return m, nil

	case "pgdown", "ctrl+d":
		m.vp.SetYOffset(m.vp.YOffset() + m.pageStep())
		return m, nil

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	_, err := m.store.AppendUserMessage(text)
	switch {
	case errors.Is(err, transcript.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, transcript.ErrReplyPending):
		// Disallowed while a reply is outstanding; keep the draft.
		return m, nil
	case err != nil:
		m.logger.Error("append user message", "error", err)
		return m, nil
	}

	m.input.Reset()
	m.refreshViewport()
	m.vp.GotoBottom()
	return m, tea.Batch(m.sendCmd(text), m.spinTick())
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderMessages())
}

// renderMessages builds the transcript view, oldest first.
func (m *chatModel) renderMessages() string {
	msgs := m.store.Messages()
	if len(msgs) == 0 {
		return m.theme.hintStyle().Render("No messages yet. Say hello!")
	}

	body := lipgloss.NewStyle().Width(m.width - 2)
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, body))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *chatModel) renderMessage(msg models.Message, body lipgloss.Style) string {
	stamp := m.theme.hintStyle().Render(msg.CreatedAt.Local().Format("15:04"))

	switch {
	case msg.State == models.StatePending:
		label := m.theme.assistantStyle().Render("LifeOS")
		frame := spinFrames[m.spinPos]
		return fmt.Sprintf("%s %s\n%s", label, stamp, m.theme.hintStyle().Render(frame+" Thinking..."))

	case msg.State == models.StateErrored:
		label := m.theme.errorStyle().Bold(true).Render("LifeOS ✗")
		return fmt.Sprintf("%s %s\n%s", label, stamp, m.theme.errorStyle().Render(body.Render(msg.Content)))

	case msg.Role == models.RoleUser:
		label := m.theme.userStyle().Render("You")
		return fmt.Sprintf("%s %s\n%s", label, stamp, body.Render(msg.Content))

	default:
		label := m.theme.assistantStyle().Render("LifeOS")
		return fmt.Sprintf("%s %s\n%s", label, stamp, body.Render(msg.Content))
	}
}

// View renders the full chat screen.
func (m chatModel) View() tea.View {
	if !m.ready {
		return tea.NewView("Loading...")
	}

	header := m.theme.headerStyle().Render("LifeOS Chat")

	var status string
	switch {
	case m.pager.Loading():
		status = m.theme.hintStyle().Render(spinFrames[m.spinPos] + " Loading older messages...")
	case !m.pager.HasMore():
		status = m.theme.hintStyle().Render("Beginning of history")
	default:
		status = m.theme.hintStyle().Render("PgUp for older messages")
	}

	view := tea.NewView(fmt.Sprintf("%s\n%s\n%s\n%s", header, status, m.vp.View(), m.input.View()))
	view.AltScreen = true
	return view
}

// describeSendFailure turns a send error into the inline notice shown in the
// transcript.
func describeSendFailure(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Failed to send message: %s (code %d)", apiErr.Message, apiErr.Code)
	}
	return fmt.Sprintf("Failed to send message: %v", err)
}

// Run starts the interactive chat session and blocks until the user quits.
func Run(api *client.Client, pageSize int, logger *slog.Logger) error {
	model := newChatModel(api, pageSize, logger)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
