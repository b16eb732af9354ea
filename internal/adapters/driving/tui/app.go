package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/oliverbatey/forager/internal/adapters/driving/chat"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui/components/input"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui/components/status"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui/keymap"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui/messages"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui/styles"
)

// chromeHeight is the number of rows used by the title, input and status bar.
const chromeHeight = 6

type speaker int

const (
	speakerUser speaker = iota
	speakerAgent
	speakerInfo
	speakerError
)

type entry struct {
	from speaker
	text string
}

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	handler *chat.Handler
	ctx     context.Context

	styles  *styles.Styles
	keymap  *keymap.KeyMap
	input   *input.ChatInput
	status  *status.Bar
	spinner spinner.Model
	view    viewport.Model

	transcript []entry
	waiting    bool

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the first WindowSizeMsg has arrived.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	session := ports.SessionID
	if session == "" {
		session = uuid.NewString()
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.AgentLabel

	bar := status.NewBar(s, km)
	bar.SetSession(session)

	return &App{
		handler: chat.NewHandler(ports.Agent, ports.Ingestion, ports.Search, session),
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		input:   input.NewChatInput(s),
		status:  bar,
		spinner: sp,
		view:    viewport.New(80, 20),
		transcript: []entry{
			{from: speakerInfo, text: "Type a question, or /help for commands."},
		},
	}, nil
}

// WithContext sets the context passed to the agent.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// SessionID returns the agent session of this chat.
func (a *App) SessionID() string {
	return a.handler.SessionID()
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("forager"),
		a.input.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		a.view, cmd = a.view.Update(msg)
		return a, cmd

	case spinner.TickMsg:
		if !a.waiting {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		a.status.SetSpinner(a.spinner.View())
		return a, cmd

	case messages.ReplyReceived:
		a.waiting = false
		a.status.Clear()
		a.receive(msg.Output)
		return a, nil

	case messages.PromptsReloaded:
		a.status.SetMessage(fmt.Sprintf("Reloaded %s prompt", msg.Name))
		return a, nil
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(key, a.keymap.ScrollUp):
		a.view.HalfViewUp()
		return a, nil

	case keymap.Matches(key, a.keymap.ScrollDown):
		a.view.HalfViewDown()
		return a, nil

	case keymap.Matches(key, a.keymap.Send):
		return a.send()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// send submits the input line. Lines typed while a reply is pending are kept
// in the input.
func (a *App) send() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(a.input.Value())
	if line == "" || a.waiting {
		return a, nil
	}
	a.input.Reset()

	switch strings.ToLower(line) {
	case "/quit", "/exit":
		return a, tea.Quit
	case "/clear":
		a.transcript = nil
	}

	a.append(entry{from: speakerUser, text: line})
	a.waiting = true
	a.status.SetState(status.StateThinking)
	a.status.SetSpinner(a.spinner.View())

	return a, tea.Batch(a.ask(line), a.spinner.Tick)
}

func (a *App) ask(line string) tea.Cmd {
	ctx := a.ctx
	handler := a.handler
	return func() tea.Msg {
		return messages.ReplyReceived{Output: handler.Handle(ctx, line)}
	}
}

func (a *App) receive(out chat.Output) {
	if out.Text == "" {
		return
	}
	switch out.Kind {
	case chat.KindReply:
		a.append(entry{from: speakerAgent, text: out.Text})
	case chat.KindError:
		a.status.SetState(status.StateError)
		a.status.SetMessage(firstLine(out.Text))
		a.append(entry{from: speakerError, text: out.Text})
	case chat.KindInfo:
		a.append(entry{from: speakerInfo, text: out.Text})
	}
}

func (a *App) append(e entry) {
	a.transcript = append(a.transcript, e)
	a.view.SetContent(a.renderTranscript())
	a.view.GotoBottom()
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.input.SetWidth(width)
	a.status.SetWidth(width)

	a.view.Width = width
	a.view.Height = max(height-chromeHeight, 1)
	a.view.SetContent(a.renderTranscript())
	a.view.GotoBottom()
}

func (a *App) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(a.view.Width-2, 10))

	blocks := make([]string, 0, len(a.transcript))
	for _, e := range a.transcript {
		var block string
		switch e.from {
		case speakerUser:
			block = a.styles.UserLabel.Render("You") + "\n" + wrap.Render(e.text)
		case speakerAgent:
			block = a.styles.AgentLabel.Render("Forager") + "\n" + wrap.Render(e.text)
		case speakerError:
			block = a.styles.Error.Render(wrap.Render(e.text))
		case speakerInfo:
			block = a.styles.Muted.Render(wrap.Render(e.text))
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("forager"),
		a.view.View(),
		a.input.View(),
		a.status.View(),
	)
}

// Transcript returns the rendered conversation text without styling.
func (a *App) Transcript() []string {
	lines := make([]string, len(a.transcript))
	for i, e := range a.transcript {
		lines[i] = e.text
	}
	return lines
}

// Waiting reports whether a reply is pending.
func (a *App) Waiting() bool {
	return a.waiting
}

// Run starts the Bubbletea program and blocks until it exits. Names received
// on reloads are shown in the status bar; reloads may be nil.
func (a *App) Run(reloads <-chan string) error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	if reloads != nil {
		go func() {
			for name := range reloads {
				p.Send(messages.PromptsReloaded{Name: name})
			}
		}()
	}
	_, err := p.Run()
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
