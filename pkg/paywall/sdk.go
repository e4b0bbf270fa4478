package paywall

import "context"

// Paywall is a vendor paywall for one placement.
type Paywall struct {
	PlacementID string

	// HasViewConfiguration reports whether the paywall was designed in the
	// vendor's visual builder and can be rendered by it.
	HasViewConfiguration bool

	// Vendor holds the SDK's own paywall value for the bridge.
	Vendor any
}

// Configuration is the SDK's opaque view configuration for a paywall.
type Configuration any

// Product is a purchasable product shown on a paywall.
type Product struct {
	VendorProductID string
	Vendor          any
}

// AccessLevel is one entitlement on a vendor profile.
type AccessLevel struct {
	ID       string
	IsActive bool
}

// Profile is the vendor's view of the current user.
type Profile struct {
	ProfileID    string
	AccessLevels map[string]AccessLevel
}

// HasActive reports whether the access level id is present and active.
func (p Profile) HasActive(id string) bool {
	return p.AccessLevels[id].IsActive
}

// PurchaseOutcome is the result kind of a finished purchase.
type PurchaseOutcome int

const (
	PurchaseSuccess PurchaseOutcome = iota + 1
	PurchaseUserCancelled
	PurchasePending
)

// PurchaseResult is reported when the vendor purchase flow ends.
type PurchaseResult struct {
	Outcome PurchaseOutcome
	// Profile is set for PurchaseSuccess.
	Profile Profile
}

// ActionKind identifies a user action inside a rendered paywall.
type ActionKind int

const (
	ActionClose ActionKind = iota + 1
	ActionOpenURL
	ActionCustom
)

// Action is a user action inside a rendered paywall.
type Action struct {
	Kind ActionKind
	// URL is set for ActionOpenURL.
	URL string
	// ID is the button id for ActionCustom.
	ID string
}

// Controller is a rendered paywall screen.
type Controller interface {
	Dismiss()
}

// Delegate is the callback surface the vendor SDK drives while a paywall is
// on screen. Session implements it; bridges forward every SDK callback to
// the matching method.
type Delegate interface {
	DidPerformAction(ctl Controller, action Action)
	DidSelectProduct(ctl Controller, product Product)
	DidStartPurchase(ctl Controller, product Product)
	DidCancelPurchase(ctl Controller, product Product)
	DidFinishPurchase(ctl Controller, product Product, result PurchaseResult) Entitlement
	DidFailPurchase(ctl Controller, product Product, err error)
	DidStartRestore(ctl Controller)
	DidFinishRestore(ctl Controller, profile Profile) Entitlement
	DidFailRestore(ctl Controller, err error)
	DidFailRendering(ctl Controller, err error)
	// DidFailLoadingProducts returns true to let the SDK retry loading.
	DidFailLoadingProducts(ctl Controller, err error) bool
}

// SDK is the part of the vendor SDK the presenter needs.
type SDK interface {
	FetchPaywall(ctx context.Context, placementID string) (Paywall, error)
	FetchConfiguration(ctx context.Context, pw Paywall) (Configuration, error)
	FetchProducts(ctx context.Context, pw Paywall) ([]Product, error)
	NewController(cfg Configuration, d Delegate) (Controller, error)
}

// Host is the embedding application's UI.
type Host interface {
	Present(ctx context.Context, ctl Controller) error
	OpenURL(ctx context.Context, rawURL string) error
	Alert(ctx context.Context, ctl Controller, alert Alert)
}

// Alert is a message box shown over a paywall.
type Alert struct {
	Title   string
	Message string
	Buttons []AlertButton
}

// AlertButton is one button of an Alert. Action may be nil.
type AlertButton struct {
	Title  string
	Action func()
}
