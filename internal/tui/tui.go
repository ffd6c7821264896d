// Package tui renders the derived view in the terminal and forwards the
// connect and mint actions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vietddude/epicmint/internal/core/domain"
)

// Backend is the application surface driven by the TUI.
type Backend interface {
	Snapshot() domain.Snapshot
	Subscribe(fn func(domain.Snapshot))
	Connect(ctx context.Context) error
	StartMint() error
}

// Model is the main Bubbletea model
type Model struct {
	backend Backend
	ctx     context.Context
	snap    domain.Snapshot
	spinner spinner.Model
	err     error
	width   int
}

// Messages for async operations
type snapshotMsg domain.Snapshot
type actionErrorMsg struct{ err error }

// New creates a Model showing the backend's current state.
func New(ctx context.Context, backend Backend) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		backend: backend,
		ctx:     ctx,
		snap:    backend.Snapshot(),
		spinner: s,
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, backend Backend) error {
	p := tea.NewProgram(New(ctx, backend), tea.WithContext(ctx))
	backend.Subscribe(func(s domain.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	backend := m.backend
	refresh := func() tea.Msg { return snapshotMsg(backend.Snapshot()) }
	return tea.Batch(m.spinner.Tick, refresh)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.snap = domain.Snapshot(msg)
		return m, nil

	case actionErrorMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "c", "enter":
		if !m.snap.View.CanConnect {
			return m, nil
		}
		m.err = nil
		return m, m.connect()

	case "m":
		if !m.snap.View.CanMint {
			return m, nil
		}
		m.err = nil
		return m, m.mint()
	}
	return m, nil
}

func (m Model) connect() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		if err := backend.Connect(ctx); err != nil {
			return actionErrorMsg{err: err}
		}
		return snapshotMsg(backend.Snapshot())
	}
}

func (m Model) mint() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if err := backend.StartMint(); err != nil {
			return actionErrorMsg{err: err}
		}
		return snapshotMsg(backend.Snapshot())
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	v := m.snap.View

	b.WriteString(TitleStyle.Render("My NFT Collection"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Each unique. Each beautiful. Discover your NFT today."))
	b.WriteString("\n\n")

	b.WriteString(m.renderState())
	b.WriteString("\n")

	if v.Message != "" {
		b.WriteString(ErrorStyle.Render(v.Message))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderState() string {
	s := m.snap
	var lines []string

	switch s.View.State {
	case domain.ViewNoProvider:
		lines = append(lines, WarningStyle.Render("No wallet found"))
	case domain.ViewConnecting:
		lines = append(lines, m.spinner.View()+" "+ItemStyle.Render("Checking wallet..."))
	case domain.ViewDisconnected:
		lines = append(lines, ItemStyle.Render("Connect your wallet to mint"))
	case domain.ViewMinting:
		label := "Submitting transaction..."
		if s.Mint.Status == domain.MintStatusMining {
			label = "Mining..."
		}
		lines = append(lines, m.spinner.View()+" "+ItemStyle.Render(label))
	case domain.ViewMinted:
		label := "Minted"
		if s.View.TokenID != nil {
			label = fmt.Sprintf("Minted token #%d", *s.View.TokenID)
		}
		lines = append(lines, SuccessStyle.Render(label))
		if s.TokenURL != "" {
			lines = append(lines, DimmedStyle.Render(s.TokenURL))
		}
	case domain.ViewError:
		lines = append(lines, ErrorStyle.Render("Something went wrong"))
	default:
		lines = append(lines, SuccessStyle.Render("Ready to mint"))
	}

	if s.Session.Account != "" {
		lines = append(lines, DimmedStyle.Render("account  ")+ItemStyle.Render(s.Session.Account))
	}
	lines = append(lines, DimmedStyle.Render("network  ")+ItemStyle.Render(s.ExpectedNetwork))
	if s.TxURL != "" {
		lines = append(lines, DimmedStyle.Render("tx       ")+ItemStyle.Render(s.TxURL))
	}
	if s.CollectionURL != "" {
		lines = append(lines, DimmedStyle.Render("collection ")+ItemStyle.Render(s.CollectionURL))
	}

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	var keys []string
	if m.snap.View.CanConnect {
		keys = append(keys, RenderKeyBinding("c", "connect wallet"))
	}
	if m.snap.View.CanMint {
		keys = append(keys, RenderKeyBinding("m", "mint NFT"))
	}
	keys = append(keys, RenderKeyBinding("q", "quit"))
	return strings.Join(keys, "  ")
}
