// Package session tracks the wallet session: provider presence, the active
// account, and whether the active network is the expected one.
//
// State changes are driven by Initialize, Connect and provider
// notifications. Provider failures never escape the tracker; they are
// recorded as a tagged error in ConnectivityState.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/rpc"
	"github.com/vietddude/epicmint/internal/infra/wallet"
	"github.com/vietddude/epicmint/internal/metrics"
)

var (
	ErrProviderMissing = errors.New("session: wallet provider missing")
	ErrBusy            = errors.New("session: wallet request already in flight")
	ErrClosed          = errors.New("session: tracker closed")

	// ErrNotConnected is returned by callers gating work on a connected
	// session, such as minting.
	ErrNotConnected = errors.New("session: not connected to the expected network")
)

// Listener observes state changes. Listeners are called one at a time, always
// with the latest state, and must not call back into the Tracker.
type Listener func(domain.ConnectivityState)

// Tracker is the Session Tracker.
type Tracker struct {
	provider wallet.Provider
	expected domain.ChainID
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      domain.ConnectivityState
	requesting bool   // Initialize or Connect outstanding
	pending    int    // outstanding provider calls, drives IsBusy
	gen        uint64 // bumped on account change and on every network check
	subs       []wallet.Subscription
	listeners  []Listener
	closed     bool

	notifyMu sync.Mutex
}

// NewTracker creates a tracker. provider may be nil when no wallet is
// available; the tracker then reports provider-missing on Initialize.
func NewTracker(provider wallet.Provider, expected domain.ChainID, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		provider: provider,
		expected: expected,
		log:      log.With("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
		state: domain.ConnectivityState{
			ProviderPresent: provider != nil,
			ExpectedNetwork: expected,
			Phase:           domain.PhaseUninitialized,
		},
	}
}

// OnChange registers a listener for state changes.
func (t *Tracker) OnChange(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// State returns a snapshot of the connectivity state.
func (t *Tracker) State() domain.ConnectivityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Initialize checks for the provider and adopts an already-authorized
// account without prompting the user.
func (t *Tracker) Initialize(ctx context.Context) error {
	if err := t.beginRequest(); err != nil {
		return err
	}
	defer t.endRequest()

	accounts, err := t.provider.RequestAccounts(ctx)
	if err != nil {
		t.failRequest(err)
		return nil
	}
	if len(accounts) == 0 {
		t.log.Debug("No authorized account found")
	} else {
		t.log.Debug("Found an authorized account", "account", accounts[0])
	}
	t.adopt(ctx, accounts)
	return nil
}

// Connect asks the wallet to authorize an account. A Connect or Initialize
// already in flight makes it return ErrBusy without issuing a request.
func (t *Tracker) Connect(ctx context.Context) error {
	if err := t.beginRequest(); err != nil {
		return err
	}
	defer t.endRequest()

	accounts, err := t.provider.RequestAuthorization(ctx)
	if err != nil {
		t.failRequest(err)
		return nil
	}
	if len(accounts) > 0 {
		t.log.Info("Connected", "account", domain.NormalizeAccount(accounts[0]))
	}
	t.adopt(ctx, accounts)
	return nil
}

// Close tears down provider subscriptions. Later calls return ErrClosed.
func (t *Tracker) Close() error {
	t.mu.Lock()
	t.closed = true
	t.unsubscribeLocked()
	t.mu.Unlock()
	t.cancel()
	return nil
}

func (t *Tracker) beginRequest() error {
	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return ErrClosed
	case t.provider == nil:
		t.state.ProviderPresent = false
		t.state.Account = ""
		t.state.Phase = domain.PhaseDisconnected
		t.setErrorLocked(domain.NewStateError(domain.ErrorProviderMissing, ""))
		t.mu.Unlock()
		t.log.Debug("Make sure you have a connected wallet")
		t.publish()
		return ErrProviderMissing
	case t.requesting:
		t.mu.Unlock()
		return ErrBusy
	}
	t.requesting = true
	t.pending++
	t.state.IsBusy = true
	t.state.Phase = domain.PhaseChecking
	t.mu.Unlock()
	t.publish()
	return nil
}

func (t *Tracker) endRequest() {
	t.mu.Lock()
	t.requesting = false
	t.pending--
	t.settleLocked()
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) failRequest(err error) {
	t.log.Warn("wallet request failed", "error", err)
	t.mu.Lock()
	t.setErrorLocked(domain.NewStateError(domain.ErrorRequestFailed, rpc.Message(err)))
	t.mu.Unlock()
	t.publish()
}

// adopt applies an account list: the first entry becomes the account, an
// empty list disconnects. A non-empty account triggers a network check.
func (t *Tracker) adopt(ctx context.Context, accounts []string) {
	account := domain.FirstAccount(accounts)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if account == "" {
		t.clearAccountLocked()
		t.setErrorLocked(domain.NewStateError(domain.ErrorNoAccount, ""))
		t.settleLocked()
		t.mu.Unlock()
		t.publish()
		return
	}

	if account != t.state.Account {
		t.state.Account = account
		t.state.Network = ""
		t.gen++
	}
	t.state.Error = nil
	t.subscribeLocked()
	t.mu.Unlock()
	t.publish()

	t.checkNetwork(ctx)
}

// checkNetwork queries the active chain and compares it with the expected
// one. Results are dropped if the account changed or a newer check started
// while the query was outstanding.
func (t *Tracker) checkNetwork(ctx context.Context) {
	t.mu.Lock()
	if t.state.Account == "" || t.closed {
		t.mu.Unlock()
		return
	}
	t.gen++
	gen := t.gen
	t.pending++
	t.state.IsBusy = true
	t.state.Phase = domain.PhaseChecking
	t.mu.Unlock()
	t.publish()

	chainID, err := t.provider.ChainID(ctx)

	t.mu.Lock()
	t.pending--
	if gen == t.gen && t.state.Account != "" {
		if err != nil {
			t.log.Warn("network check failed", "error", err)
			t.setErrorLocked(domain.NewStateError(domain.ErrorRequestFailed, rpc.Message(err)))
		} else {
			t.applyChainLocked(chainID)
		}
	}
	t.settleLocked()
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) applyChainLocked(raw string) {
	t.state.Network = domain.NormalizeChainID(raw)
	if t.state.Network != t.expected {
		t.log.Debug("You are not connected to the right network",
			"network", t.state.Network, "expected", t.expected)
		t.setErrorLocked(domain.NewWrongNetworkError(t.expected))
		return
	}
	t.log.Debug("You are connected to " + t.state.Network.Name())
	t.state.Error = nil
}

func (t *Tracker) handleAccountsChanged(n wallet.Notification) {
	if len(n.Accounts) == 0 {
		t.log.Debug("Make sure you have an account")
	} else {
		t.log.Debug("Your account is " + domain.NormalizeAccount(n.Accounts[0]))
	}
	t.adopt(t.ctx, n.Accounts)
}

// handleChainChanged passes through the checking phase and then applies the
// chain id carried by the event without another query.
func (t *Tracker) handleChainChanged(n wallet.Notification) {
	t.mu.Lock()
	if t.state.Account == "" || t.closed {
		t.mu.Unlock()
		return
	}
	// Supersedes any network query still in flight.
	t.gen++
	gen := t.gen
	t.pending++
	t.state.IsBusy = true
	t.state.Phase = domain.PhaseChecking
	t.mu.Unlock()
	t.publish()

	t.mu.Lock()
	t.pending--
	if gen == t.gen && t.state.Account != "" {
		t.applyChainLocked(n.ChainID)
	}
	t.settleLocked()
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) subscribeLocked() {
	if len(t.subs) > 0 || t.closed {
		return
	}
	t.subs = []wallet.Subscription{
		t.provider.On(wallet.EventAccountsChanged, t.handleAccountsChanged),
		t.provider.On(wallet.EventChainChanged, t.handleChainChanged),
	}
}

func (t *Tracker) unsubscribeLocked() {
	for _, s := range t.subs {
		s.Unsubscribe()
	}
	t.subs = nil
}

func (t *Tracker) clearAccountLocked() {
	t.state.Account = ""
	t.state.Network = ""
	t.gen++
	t.unsubscribeLocked()
}

func (t *Tracker) setErrorLocked(e *domain.StateError) {
	t.state.Error = e
	metrics.SessionErrorsTotal.WithLabelValues(string(e.Kind)).Inc()
}

// settleLocked leaves the checking phase once nothing is outstanding.
func (t *Tracker) settleLocked() {
	t.state.IsBusy = t.pending > 0
	if t.state.IsBusy {
		return
	}
	if t.state.Account == "" {
		t.state.Phase = domain.PhaseDisconnected
	} else {
		t.state.Phase = domain.PhaseConnected
	}
}

// publish delivers the current state to listeners. The snapshot is taken
// under notifyMu so the last delivery always carries the latest state.
func (t *Tracker) publish() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	state := t.state
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	if state.Connected() {
		metrics.SessionConnected.Set(1)
	} else {
		metrics.SessionConnected.Set(0)
	}
	for _, l := range listeners {
		l(state)
	}
}
