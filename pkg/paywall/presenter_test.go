package paywall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu        sync.Mutex
	dismissed int
}

func (c *fakeController) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissed++
}

func (c *fakeController) Dismissed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dismissed
}

type fakeSDK struct {
	paywalls map[string]Paywall
	fetchErr error
	ctlErr   error

	delegate Delegate
	ctl      *fakeController
}

func (f *fakeSDK) FetchPaywall(_ context.Context, id string) (Paywall, error) {
	if f.fetchErr != nil {
		return Paywall{}, f.fetchErr
	}
	pw, ok := f.paywalls[id]
	if !ok {
		return Paywall{}, errors.New("unknown placement")
	}
	return pw, nil
}

func (f *fakeSDK) FetchConfiguration(_ context.Context, pw Paywall) (Configuration, error) {
	return "config:" + pw.PlacementID, nil
}

func (f *fakeSDK) FetchProducts(context.Context, Paywall) ([]Product, error) {
	return []Product{{VendorProductID: "monthly"}}, nil
}

func (f *fakeSDK) NewController(_ Configuration, d Delegate) (Controller, error) {
	if f.ctlErr != nil {
		return nil, f.ctlErr
	}
	f.delegate = d
	f.ctl = &fakeController{}
	return f.ctl, nil
}

type fakeHost struct {
	presentErr error
	presented  []Controller
	urls       []string
	alerts     []Alert
}

func (h *fakeHost) Present(_ context.Context, ctl Controller) error {
	if h.presentErr != nil {
		return h.presentErr
	}
	h.presented = append(h.presented, ctl)
	return nil
}

func (h *fakeHost) OpenURL(_ context.Context, u string) error {
	h.urls = append(h.urls, u)
	return nil
}

func (h *fakeHost) Alert(_ context.Context, _ Controller, a Alert) {
	h.alerts = append(h.alerts, a)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPresenter(t *testing.T, opts ...Option) (*Presenter, *fakeSDK, *fakeHost) {
	t.Helper()
	sdk := &fakeSDK{paywalls: map[string]Paywall{
		"onboarding": {PlacementID: "onboarding", HasViewConfiguration: true},
		"legacy":     {PlacementID: "legacy"},
	}}
	host := &fakeHost{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	p := NewPresenter(sdk, host, NewCache(), opts...)
	require.NoError(t, p.Cache().Prefetch(context.Background(), sdk, "onboarding", "legacy"))
	return p, sdk, host
}

type eventLog struct {
	events []Event
}

func (l *eventLog) handlers(kinds ...EventKind) Handlers {
	var h Handlers
	for _, k := range kinds {
		h = h.On(k, func(e Event) { l.events = append(l.events, e) })
	}
	return h
}

var allKinds = []EventKind{
	EventPurchased, EventRestored, EventRestoreNoAccess, EventDismissed,
	EventFailedToPresent, EventCustomAction, EventPurchaseFailed,
	EventRestoreFailed, EventRenderFailed,
}

func TestPresent_NotCachedFails(t *testing.T) {
	p, _, host := newTestPresenter(t)
	log := &eventLog{}

	s, err := p.Present(context.Background(), PresentRequest{PlacementID: "missing", Handlers: log.handlers(allKinds...)})
	require.ErrorIs(t, err, ErrPlacementNotCached)
	require.Nil(t, s)
	require.Empty(t, host.presented)
	require.Len(t, log.events, 1)
	require.Equal(t, EventFailedToPresent, log.events[0].Kind)
	require.Equal(t, "missing", log.events[0].PlacementID)
}

func TestPresent_ShowsCachedPaywall(t *testing.T) {
	p, sdk, host := newTestPresenter(t)

	s, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding"})
	require.NoError(t, err)
	require.Equal(t, "onboarding", s.PlacementID())
	require.Len(t, host.presented, 1)
	require.Same(t, sdk.ctl, host.presented[0])
	require.Same(t, s, sdk.delegate)
}

func TestPresent_ControllerAndHostErrors(t *testing.T) {
	p, sdk, host := newTestPresenter(t)
	log := &eventLog{}
	h := log.handlers(EventFailedToPresent)

	sdk.ctlErr = errors.New("bad config")
	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: h})
	require.ErrorIs(t, err, sdk.ctlErr)

	sdk.ctlErr = nil
	host.presentErr = errors.New("no window")
	_, err = p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: h})
	require.ErrorIs(t, err, host.presentErr)

	require.Len(t, log.events, 2)
}

func TestPrefetch_SkipsPaywallsWithoutViewConfiguration(t *testing.T) {
	p, _, _ := newTestPresenter(t)
	require.Equal(t, 1, p.Cache().Len())
	_, ok := p.Cache().Lookup("legacy")
	require.False(t, ok)

	bp, ok := p.Cache().Lookup("onboarding")
	require.True(t, ok)
	require.Equal(t, "config:onboarding", bp.Configuration)
	require.Len(t, bp.Products, 1)
}

func TestPrefetch_JoinsErrors(t *testing.T) {
	sdk := &fakeSDK{fetchErr: errors.New("offline")}
	c := NewCache()
	err := c.Prefetch(context.Background(), sdk, "a", "b")
	require.ErrorIs(t, err, sdk.fetchErr)
	require.Contains(t, err.Error(), `"a"`)
	require.Contains(t, err.Error(), `"b"`)
	require.Zero(t, c.Len())
}

func TestPresentUncached(t *testing.T) {
	p, _, host := newTestPresenter(t)
	p.Cache().Remove("onboarding")

	s, err := p.PresentUncached(context.Background(), PresentRequest{PlacementID: "onboarding"})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Len(t, host.presented, 1)
	_, ok := p.Cache().Lookup("onboarding")
	require.True(t, ok)

	log := &eventLog{}
	_, err = p.PresentUncached(context.Background(), PresentRequest{PlacementID: "legacy", Handlers: log.handlers(EventFailedToPresent)})
	require.ErrorIs(t, err, ErrNoViewConfiguration)
	require.Len(t, log.events, 1)
}

func TestSession_PurchaseSuccessGrantsAndDismisses(t *testing.T) {
	p, sdk, _ := newTestPresenter(t)
	log := &eventLog{}

	s, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
	require.NoError(t, err)

	product := Product{VendorProductID: "monthly"}
	state := sdk.delegate.DidFinishPurchase(sdk.ctl, product, PurchaseResult{Outcome: PurchaseSuccess})

	want := Entitlement{Premium: true, Source: SourcePurchase, UpdatedAt: fixedNow}
	require.Equal(t, want, state)
	require.Equal(t, want, s.Entitlement())
	require.Equal(t, 1, sdk.ctl.Dismissed())
	require.Len(t, log.events, 1)
	require.Equal(t, EventPurchased, log.events[0].Kind)
	require.Equal(t, "monthly", log.events[0].Product.VendorProductID)
	require.Equal(t, want, log.events[0].Entitlement)
}

func TestSession_PurchaseCancelledOrPendingDoesNothing(t *testing.T) {
	for _, outcome := range []PurchaseOutcome{PurchaseUserCancelled, PurchasePending} {
		p, sdk, _ := newTestPresenter(t)
		log := &eventLog{}
		s, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
		require.NoError(t, err)

		state := sdk.delegate.DidFinishPurchase(sdk.ctl, Product{}, PurchaseResult{Outcome: outcome})
		require.False(t, state.Premium)
		require.False(t, s.Entitlement().Premium)
		require.Zero(t, sdk.ctl.Dismissed())
		require.Empty(t, log.events)
	}
}

func TestSession_RestoreWithActiveAccess(t *testing.T) {
	p, sdk, host := newTestPresenter(t)
	log := &eventLog{}
	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
	require.NoError(t, err)

	profile := Profile{AccessLevels: map[string]AccessLevel{"premium": {ID: "premium", IsActive: true}}}
	state := sdk.delegate.DidFinishRestore(sdk.ctl, profile)
	require.True(t, state.Premium)
	require.Equal(t, SourceRestore, state.Source)

	require.Len(t, host.alerts, 1)
	alert := host.alerts[0]
	require.Equal(t, DefaultMessages().RestoredTitle, alert.Title)
	require.Equal(t, DefaultMessages().RestoredMessage, alert.Message)
	require.Zero(t, sdk.ctl.Dismissed())
	alert.Buttons[0].Action()
	require.Equal(t, 1, sdk.ctl.Dismissed())

	require.Len(t, log.events, 1)
	require.Equal(t, EventRestored, log.events[0].Kind)
}

func TestSession_RestoreWithoutAccess(t *testing.T) {
	p, sdk, host := newTestPresenter(t)
	log := &eventLog{}
	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
	require.NoError(t, err)

	profile := Profile{AccessLevels: map[string]AccessLevel{"premium": {ID: "premium"}}}
	state := sdk.delegate.DidFinishRestore(sdk.ctl, profile)
	require.False(t, state.Premium)

	require.Len(t, host.alerts, 1)
	require.Equal(t, "Oops!", host.alerts[0].Title)
	require.Nil(t, host.alerts[0].Buttons[0].Action)
	require.Len(t, log.events, 1)
	require.Equal(t, EventRestoreNoAccess, log.events[0].Kind)
}

func TestSession_RestoreUsesConfiguredAccessLevel(t *testing.T) {
	p, sdk, _ := newTestPresenter(t, WithAccessLevel("pro"))
	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding"})
	require.NoError(t, err)

	profile := Profile{AccessLevels: map[string]AccessLevel{"premium": {IsActive: true}}}
	require.False(t, sdk.delegate.DidFinishRestore(sdk.ctl, profile).Premium)

	profile.AccessLevels["pro"] = AccessLevel{ID: "pro", IsActive: true}
	require.True(t, sdk.delegate.DidFinishRestore(sdk.ctl, profile).Premium)
}

func TestSession_Actions(t *testing.T) {
	p, sdk, host := newTestPresenter(t)
	log := &eventLog{}
	var pressed int
	p.AddCustomButtonHandler("promo", func() { pressed++ })

	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
	require.NoError(t, err)

	sdk.delegate.DidPerformAction(sdk.ctl, Action{Kind: ActionOpenURL, URL: "https://example.com/terms"})
	require.Equal(t, []string{"https://example.com/terms"}, host.urls)
	require.Empty(t, log.events)

	sdk.delegate.DidPerformAction(sdk.ctl, Action{Kind: ActionCustom, ID: "promo"})
	require.Equal(t, 1, pressed)
	require.Len(t, log.events, 1)
	require.Equal(t, EventCustomAction, log.events[0].Kind)
	require.Equal(t, "promo", log.events[0].ButtonID)

	sdk.delegate.DidPerformAction(sdk.ctl, Action{Kind: ActionClose})
	require.Equal(t, 1, sdk.ctl.Dismissed())
	require.Len(t, log.events, 2)
	require.Equal(t, EventDismissed, log.events[1].Kind)
}

func TestSession_Failures(t *testing.T) {
	p, sdk, _ := newTestPresenter(t)
	log := &eventLog{}
	_, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", Handlers: log.handlers(allKinds...)})
	require.NoError(t, err)

	boom := errors.New("boom")
	sdk.delegate.DidFailPurchase(sdk.ctl, Product{VendorProductID: "annual"}, boom)
	sdk.delegate.DidFailRestore(sdk.ctl, boom)
	sdk.delegate.DidFailRendering(sdk.ctl, boom)
	require.True(t, sdk.delegate.DidFailLoadingProducts(sdk.ctl, boom))

	require.Len(t, log.events, 3)
	require.Equal(t, EventPurchaseFailed, log.events[0].Kind)
	require.Equal(t, EventRestoreFailed, log.events[1].Kind)
	require.Equal(t, EventRenderFailed, log.events[2].Kind)
	for _, e := range log.events {
		require.ErrorIs(t, e.Err, boom)
	}
}

func TestSession_StateStartsFromRequest(t *testing.T) {
	p, _, _ := newTestPresenter(t)
	prior := Entitlement{Premium: true, Source: SourceRestore, UpdatedAt: fixedNow.Add(-time.Hour)}

	s, err := p.Present(context.Background(), PresentRequest{PlacementID: "onboarding", State: prior})
	require.NoError(t, err)
	require.Equal(t, prior, s.Entitlement())
}

func TestHandlers_OnAndString(t *testing.T) {
	var h Handlers
	h = h.On(EventDismissed, func(Event) {})
	require.Len(t, h, 1)
	require.Equal(t, "dismissed", EventDismissed.String())
	require.Equal(t, "unknown", EventKind(0).String())

	// kinds without a handler are ignored
	h.emit(Event{Kind: EventPurchased})
}
