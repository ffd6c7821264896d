// Package control wires the session tracker, the mint coordinator, the event
// emitter and the API server into one application.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/epicmint/internal/api"
	"github.com/vietddude/epicmint/internal/core/config"
	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/emitter"
	"github.com/vietddude/epicmint/internal/infra/contract"
	redisclient "github.com/vietddude/epicmint/internal/infra/redis"
	"github.com/vietddude/epicmint/internal/infra/rpc"
	"github.com/vietddude/epicmint/internal/infra/wallet"
	"github.com/vietddude/epicmint/internal/mint"
	"github.com/vietddude/epicmint/internal/session"
)

const emitTimeout = 5 * time.Second

// Deps are the external capabilities of an App.
type Deps struct {
	Provider wallet.Provider // nil when no wallet is available
	Factory  contract.Factory
	Emitter  emitter.Emitter // nil disables event delivery
	ABI      string
}

// App is the main application struct that manages the component lifecycle.
type App struct {
	cfg         *config.AppConfig
	tracker     *session.Tracker
	coordinator *mint.Coordinator
	emitter     emitter.Emitter
	server      *api.Server
	log         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mints  sync.WaitGroup

	mu          sync.Mutex
	subscribers []func(domain.Snapshot)
	notifyMu    sync.Mutex
}

// NewApp builds an App and its dependencies from cfg.
func NewApp(cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	abiJSON, err := contract.LoadABI(cfg.Contract)
	if err != nil {
		return nil, err
	}

	deps := Deps{ABI: abiJSON}
	if p, ok := wallet.Lookup(cfg.Wallet, log); ok {
		deps.Provider = p
	} else {
		log.Warn("No wallet endpoint configured")
	}

	client := rpc.NewHTTPClient("contract", cfg.Contract.RPCURL, cfg.Wallet.Timeout)
	deps.Factory = contract.NewEVMFactory(client, cfg.Contract, log)

	switch cfg.Emitter.Type {
	case config.EmitterLog:
		deps.Emitter = emitter.NewLogEmitter(log)
	case config.EmitterRedis:
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		deps.Emitter = emitter.NewRedisEmitter(rc, cfg.Emitter.Channel)
		log.Info("Publishing minted events to Redis", "channel", cfg.Emitter.Channel)
	}

	return New(cfg, deps, log), nil
}

// New creates an App from explicit dependencies.
func New(cfg *config.AppConfig, deps Deps, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:     cfg,
		emitter: deps.Emitter,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	a.tracker = session.NewTracker(deps.Provider, cfg.Network.ExpectedChainID, log)
	a.coordinator = mint.NewCoordinator(deps.Factory, mint.Options{
		Address:       cfg.Contract.Address,
		ABI:           deps.ABI,
		SupplyCeiling: cfg.Contract.SupplyCeiling,
		TxURL:         cfg.Contract.TxURL,
	}, log)
	a.server = api.NewServer(a, cfg.Server.Port, log)

	// The session's account is the coordinator's signer.
	a.tracker.OnChange(func(s domain.ConnectivityState) {
		a.coordinator.SyncAccount(s.Account)
		a.notify()
	})
	a.coordinator.OnChange(func(domain.MintState) { a.notify() })
	a.coordinator.OnMinted(a.handleMinted)

	return a
}

// Start initializes the session: it checks for the wallet and adopts an
// already-authorized account.
func (a *App) Start(ctx context.Context) error {
	a.log.Info("Starting session", "expected_network", a.cfg.Network.ExpectedChainID.Name())
	return a.tracker.Initialize(ctx)
}

// Serve runs the API server until Stop.
func (a *App) Serve() error {
	return a.server.Start()
}

// Stop stops the app. In-flight mint attempts are cancelled.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")
	a.cancel()

	var g errgroup.Group
	g.Go(func() error { return a.server.Stop(ctx) })
	g.Go(a.tracker.Close)
	g.Go(a.coordinator.Close)
	err := g.Wait()

	done := make(chan struct{})
	go func() {
		a.mints.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("Mint attempt still running at shutdown")
	}

	if a.emitter != nil {
		if cerr := a.emitter.Close(); cerr != nil {
			a.log.Warn("Failed to close emitter", "error", cerr)
		}
	}
	return err
}

// Subscribe registers fn to receive every snapshot change.
func (a *App) Subscribe(fn func(domain.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Snapshot returns the current combined state.
func (a *App) Snapshot() domain.Snapshot {
	sess := a.tracker.State()
	m := a.coordinator.State()

	snap := domain.Snapshot{
		Session:         sess,
		Mint:            m,
		View:            domain.DeriveView(sess, m),
		ExpectedNetwork: a.cfg.Network.ExpectedChainID.Name(),
		CollectionURL:   a.cfg.Contract.CollectionURL,
	}
	if m.MintedTokenID != nil {
		snap.TokenURL = a.cfg.Contract.TokenURL(*m.MintedTokenID)
	}
	if m.LastTxHash != "" {
		snap.TxURL = a.cfg.Contract.TxURL(m.LastTxHash)
	}
	return snap
}

// Connect asks the wallet to authorize an account.
func (a *App) Connect(ctx context.Context) error {
	return a.tracker.Connect(ctx)
}

// Mint runs a mint attempt to completion. The session must be connected to
// the expected network.
func (a *App) Mint(ctx context.Context) error {
	if !a.tracker.State().Connected() {
		return session.ErrNotConnected
	}
	return a.coordinator.Mint(ctx)
}

// StartMint checks that a mint attempt can begin and runs it in the
// background.
func (a *App) StartMint() error {
	if !a.tracker.State().Connected() {
		return session.ErrNotConnected
	}
	if !a.coordinator.State().Bound {
		return mint.ErrNoBinding
	}
	if a.coordinator.Busy() {
		return mint.ErrInFlight
	}

	a.mints.Add(1)
	go func() {
		defer a.mints.Done()
		if err := a.Mint(a.ctx); err != nil {
			a.log.Warn("Mint attempt not started", "error", err)
		}
	}()
	return nil
}

func (a *App) handleMinted(m domain.TokenMinted) {
	if a.emitter == nil {
		return
	}
	event := emitter.NewMintedEvent(a.cfg.Network.ExpectedChainID, a.cfg.Contract.Address, m)

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := a.emitter.Emit(ctx, event); err != nil {
		a.log.Warn("Failed to emit minted event", "error", err, "token_id", m.TokenID)
	}
}

func (a *App) notify() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	subs := append(([]func(domain.Snapshot))(nil), a.subscribers...)
	a.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	snap := a.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}
