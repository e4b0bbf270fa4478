package paywall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrPlacementNotCached is returned by Present for placements that were
	// never put in the Cache.
	ErrPlacementNotCached = errors.New("paywall: placement not cached")

	// ErrNoViewConfiguration is returned for paywalls not built with the
	// vendor's visual builder.
	ErrNoViewConfiguration = errors.New("paywall: no view configuration")
)

// DefaultAccessLevel is the access level checked after a restore.
const DefaultAccessLevel = "premium"

// Messages are the alert texts shown after a restore.
type Messages struct {
	RestoredTitle   string
	RestoredMessage string
	NoAccessTitle   string
	NoAccessMessage string
	ButtonTitle     string
}

// DefaultMessages returns the built-in restore alert texts.
func DefaultMessages() Messages {
	return Messages{
		RestoredTitle:   "Restored Successfully!",
		RestoredMessage: "Welcome back! We restored your subscription successfully. Now you can use all of the premium features again.",
		NoAccessTitle:   "Oops!",
		NoAccessMessage: "We couldn’t find any active subscription in your account.",
		ButtonTitle:     "OK",
	}
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithAccessLevel sets the access level that counts as premium on restore.
func WithAccessLevel(id string) Option {
	return func(p *Presenter) {
		if id != "" {
			p.accessLevel = id
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source used to stamp entitlements.
func WithClock(now func() time.Time) Option {
	return func(p *Presenter) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMessages replaces the restore alert texts.
func WithMessages(m Messages) Option {
	return func(p *Presenter) { p.messages = m }
}

// Presenter shows cached builder paywalls through the host and turns vendor
// callbacks into Events.
type Presenter struct {
	sdk   SDK
	host  Host
	cache *Cache

	accessLevel string
	messages    Messages
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	buttons map[string]func()
}

// NewPresenter creates a Presenter. A nil cache is replaced with an empty one.
func NewPresenter(sdk SDK, host Host, cache *Cache, opts ...Option) *Presenter {
	if cache == nil {
		cache = NewCache()
	}
	p := &Presenter{
		sdk:         sdk,
		host:        host,
		cache:       cache,
		accessLevel: DefaultAccessLevel,
		messages:    DefaultMessages(),
		logger:      slog.Default(),
		now:         time.Now,
		buttons:     make(map[string]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cache returns the presenter's cache.
func (p *Presenter) Cache() *Cache { return p.cache }

// AddCustomButtonHandler registers fn for custom button id. It runs before
// the EventCustomAction handler of the presentation.
func (p *Presenter) AddCustomButtonHandler(id string, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn == nil {
		delete(p.buttons, id)
		return
	}
	p.buttons[id] = fn
}

func (p *Presenter) button(id string) func() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buttons[id]
}

// PresentRequest describes one presentation.
type PresentRequest struct {
	PlacementID string
	// State is the entitlement before the paywall is shown.
	State    Entitlement
	Handlers Handlers
}

// Present shows the cached paywall for req.PlacementID. On failure the
// EventFailedToPresent handler runs and the error is returned.
func (p *Presenter) Present(ctx context.Context, req PresentRequest) (*Session, error) {
	bp, ok := p.cache.Lookup(req.PlacementID)
	if !ok {
		return nil, p.failed(req, fmt.Errorf("%w: %q", ErrPlacementNotCached, req.PlacementID))
	}
	return p.present(ctx, req, bp)
}

// PresentUncached fetches the paywall for req.PlacementID, caches it and
// shows it.
func (p *Presenter) PresentUncached(ctx context.Context, req PresentRequest) (*Session, error) {
	bp, err := fetchBuilderPaywall(ctx, p.sdk, req.PlacementID)
	if err != nil {
		return nil, p.failed(req, err)
	}
	p.cache.Put(bp)
	return p.present(ctx, req, bp)
}

func (p *Presenter) present(ctx context.Context, req PresentRequest, bp BuilderPaywall) (*Session, error) {
	if !bp.Paywall.HasViewConfiguration {
		return nil, p.failed(req, fmt.Errorf("%w: %q", ErrNoViewConfiguration, req.PlacementID))
	}

	s := &Session{
		presenter:   p,
		ctx:         context.WithoutCancel(ctx),
		placementID: req.PlacementID,
		handlers:    req.Handlers.clone(),
		state:       req.State,
		logger:      p.logger.With("placement_id", req.PlacementID),
	}

	ctl, err := p.sdk.NewController(bp.Configuration, s)
	if err != nil {
		return nil, p.failed(req, fmt.Errorf("paywall %q: create controller: %w", req.PlacementID, err))
	}
	if err := p.host.Present(ctx, ctl); err != nil {
		return nil, p.failed(req, fmt.Errorf("paywall %q: present: %w", req.PlacementID, err))
	}

	s.logger.Debug("paywall_presented")
	return s, nil
}

func (p *Presenter) failed(req PresentRequest, err error) error {
	p.logger.Warn("paywall_present_failed", "placement_id", req.PlacementID, "error", err)
	req.Handlers.emit(Event{
		Kind:        EventFailedToPresent,
		PlacementID: req.PlacementID,
		Entitlement: req.State,
		Err:         err,
	})
	return err
}

// Session is one on-screen paywall. It implements Delegate and holds the
// entitlement state for that presentation.
type Session struct {
	presenter   *Presenter
	ctx         context.Context
	placementID string
	handlers    Handlers
	logger      *slog.Logger

	mu    sync.Mutex
	state Entitlement
}

var _ Delegate = (*Session)(nil)

// PlacementID returns the presented placement.
func (s *Session) PlacementID() string { return s.placementID }

// Entitlement returns the current entitlement state.
func (s *Session) Entitlement() Entitlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) grant(src Source) Entitlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.Grant(src, s.presenter.now())
	return s.state
}

func (s *Session) emit(e Event) {
	e.PlacementID = s.placementID
	s.handlers.emit(e)
}

func (s *Session) DidPerformAction(ctl Controller, action Action) {
	switch action.Kind {
	case ActionClose:
		ctl.Dismiss()
		s.emit(Event{Kind: EventDismissed, Entitlement: s.Entitlement()})
	case ActionOpenURL:
		if err := s.presenter.host.OpenURL(s.ctx, action.URL); err != nil {
			s.logger.Warn("paywall_open_url_failed", "url", action.URL, "error", err)
		}
	case ActionCustom:
		if fn := s.presenter.button(action.ID); fn != nil {
			fn()
		}
		s.emit(Event{Kind: EventCustomAction, ButtonID: action.ID, Entitlement: s.Entitlement()})
	default:
		s.logger.Debug("paywall_unknown_action", "kind", int(action.Kind))
	}
}

func (s *Session) DidSelectProduct(_ Controller, product Product) {
	s.logger.Debug("paywall_product_selected", "product_id", product.VendorProductID)
}

func (s *Session) DidStartPurchase(_ Controller, product Product) {
	s.logger.Debug("paywall_purchase_started", "product_id", product.VendorProductID)
}

func (s *Session) DidCancelPurchase(_ Controller, product Product) {
	s.logger.Debug("paywall_purchase_cancelled", "product_id", product.VendorProductID)
}

func (s *Session) DidFinishPurchase(ctl Controller, product Product, result PurchaseResult) Entitlement {
	if result.Outcome != PurchaseSuccess {
		s.logger.Debug("paywall_purchase_not_completed", "product_id", product.VendorProductID, "outcome", int(result.Outcome))
		return s.Entitlement()
	}

	state := s.grant(SourcePurchase)
	s.logger.Info("paywall_purchased", "product_id", product.VendorProductID)
	ctl.Dismiss()
	s.emit(Event{Kind: EventPurchased, Product: &product, Entitlement: state})
	return state
}

func (s *Session) DidFailPurchase(_ Controller, product Product, err error) {
	s.logger.Warn("paywall_purchase_failed", "product_id", product.VendorProductID, "error", err)
	s.emit(Event{Kind: EventPurchaseFailed, Product: &product, Entitlement: s.Entitlement(), Err: err})
}

func (s *Session) DidStartRestore(Controller) {
	s.logger.Debug("paywall_restore_started")
}

func (s *Session) DidFinishRestore(ctl Controller, profile Profile) Entitlement {
	msgs := s.presenter.messages

	if !profile.HasActive(s.presenter.accessLevel) {
		s.logger.Info("paywall_restore_no_access", "access_level", s.presenter.accessLevel)
		s.presenter.host.Alert(s.ctx, ctl, Alert{
			Title:   msgs.NoAccessTitle,
			Message: msgs.NoAccessMessage,
			Buttons: []AlertButton{{Title: msgs.ButtonTitle}},
		})
		state := s.Entitlement()
		s.emit(Event{Kind: EventRestoreNoAccess, Entitlement: state})
		return state
	}

	state := s.grant(SourceRestore)
	s.logger.Info("paywall_restored", "access_level", s.presenter.accessLevel)
	s.presenter.host.Alert(s.ctx, ctl, Alert{
		Title:   msgs.RestoredTitle,
		Message: msgs.RestoredMessage,
		Buttons: []AlertButton{{Title: msgs.ButtonTitle, Action: ctl.Dismiss}},
	})
	s.emit(Event{Kind: EventRestored, Entitlement: state})
	return state
}

func (s *Session) DidFailRestore(_ Controller, err error) {
	s.logger.Warn("paywall_restore_failed", "error", err)
	s.emit(Event{Kind: EventRestoreFailed, Entitlement: s.Entitlement(), Err: err})
}

func (s *Session) DidFailRendering(_ Controller, err error) {
	s.logger.Error("paywall_render_failed", "error", err)
	s.emit(Event{Kind: EventRenderFailed, Entitlement: s.Entitlement(), Err: err})
}

func (s *Session) DidFailLoadingProducts(_ Controller, err error) bool {
	s.logger.Warn("paywall_products_load_failed", "error", err)
	return true
}
