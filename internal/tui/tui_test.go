package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/session"
)

type mockBackend struct {
	snap         domain.Snapshot
	connectErr   error
	mintErr      error
	connectCalls int
	mintCalls    int
}

func (m *mockBackend) Snapshot() domain.Snapshot          { return m.snap }
func (m *mockBackend) Subscribe(fn func(domain.Snapshot)) {}

func (m *mockBackend) Connect(ctx context.Context) error {
	m.connectCalls++
	return m.connectErr
}

func (m *mockBackend) StartMint() error {
	m.mintCalls++
	return m.mintErr
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ConnectOnlyWhenAllowed(t *testing.T) {
	backend := &mockBackend{snap: domain.Snapshot{View: domain.View{State: domain.ViewNoProvider}}}
	m := New(context.Background(), backend)

	_, cmd := m.Update(key("c"))
	if cmd != nil {
		t.Fatalf("connect must be disabled without a provider")
	}

	backend.snap.View = domain.View{State: domain.ViewDisconnected, CanConnect: true}
	m = New(context.Background(), backend)
	_, cmd = m.Update(key("c"))
	if cmd == nil {
		t.Fatal("expected a connect command")
	}
	cmd()
	if backend.connectCalls != 1 {
		t.Errorf("expected one connect call, got %d", backend.connectCalls)
	}
}

func TestModel_MintError(t *testing.T) {
	backend := &mockBackend{
		snap:    domain.Snapshot{View: domain.View{State: domain.ViewConnectedIdle, CanMint: true}},
		mintErr: session.ErrNotConnected,
	}
	m := New(context.Background(), backend)

	_, cmd := m.Update(key("m"))
	if cmd == nil {
		t.Fatal("expected a mint command")
	}
	msg := cmd()

	updated, _ := m.Update(msg)
	view := updated.(Model).View()
	if !strings.Contains(view, session.ErrNotConnected.Error()) {
		t.Errorf("expected error in view, got:\n%s", view)
	}
}

func TestModel_RendersSnapshots(t *testing.T) {
	id := uint64(7)
	m := New(context.Background(), &mockBackend{})

	tests := []struct {
		snap domain.Snapshot
		want string
	}{
		{domain.Snapshot{View: domain.View{State: domain.ViewNoProvider, Message: "Make sure you have a connected wallet"}}, "Make sure you have a connected wallet"},
		{domain.Snapshot{View: domain.View{State: domain.ViewDisconnected, CanConnect: true}}, "connect wallet"},
		{domain.Snapshot{
			View:     domain.View{State: domain.ViewMinted, CanMint: true, TokenID: &id},
			TokenURL: "https://testnets.opensea.io/assets/0xc/7",
		}, "https://testnets.opensea.io/assets/0xc/7"},
		{domain.Snapshot{
			View: domain.View{State: domain.ViewMinting},
			Mint: domain.MintState{Status: domain.MintStatusMining},
		}, "Mining..."},
	}

	for _, tt := range tests {
		updated, _ := m.Update(snapshotMsg(tt.snap))
		if view := updated.(Model).View(); !strings.Contains(view, tt.want) {
			t.Errorf("expected %q in view, got:\n%s", tt.want, view)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), &mockBackend{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}

func TestModel_ConnectErrorShown(t *testing.T) {
	backend := &mockBackend{
		snap:       domain.Snapshot{View: domain.View{State: domain.ViewDisconnected, CanConnect: true}},
		connectErr: errors.New("wallet request in flight"),
	}
	m := New(context.Background(), backend)
	_, cmd := m.Update(key("c"))
	updated, _ := m.Update(cmd())
	if !strings.Contains(updated.(Model).View(), "wallet request in flight") {
		t.Errorf("expected connect error in view")
	}
}
