// Package paywall presents vendor builder paywalls and reports what the
// user did with them.
//
// The vendor SDK and the host UI are reached through the SDK and Host
// interfaces. Paywalls are prefetched into a Cache keyed by placement id;
// Presenter.Present shows a cached one and returns a Session, which is the
// Delegate the SDK calls back into while the paywall is on screen.
//
// Outcomes are delivered as Events to the Handlers of the presentation.
// The caller's Entitlement goes in with the PresentRequest and the updated
// value comes back in Event.Entitlement; the package keeps no global
// premium flag.
package paywall
