package paywall

// EventKind identifies a paywall event delivered to Handlers.
type EventKind int

const (
	// EventPurchased fires after a successful purchase. Event.Entitlement
	// holds the granted state.
	EventPurchased EventKind = iota + 1
	// EventRestored fires after a restore found an active access level.
	EventRestored
	// EventRestoreNoAccess fires after a restore found nothing active.
	EventRestoreNoAccess
	// EventDismissed fires when the user closes the paywall.
	EventDismissed
	// EventFailedToPresent fires when a paywall could not be shown.
	EventFailedToPresent
	// EventCustomAction fires for custom buttons; Event.ButtonID is set.
	EventCustomAction
	EventPurchaseFailed
	EventRestoreFailed
	EventRenderFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPurchased:
		return "purchased"
	case EventRestored:
		return "restored"
	case EventRestoreNoAccess:
		return "restore_no_access"
	case EventDismissed:
		return "dismissed"
	case EventFailedToPresent:
		return "failed_to_present"
	case EventCustomAction:
		return "custom_action"
	case EventPurchaseFailed:
		return "purchase_failed"
	case EventRestoreFailed:
		return "restore_failed"
	case EventRenderFailed:
		return "render_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to the Handler registered for its Kind.
type Event struct {
	Kind        EventKind
	PlacementID string

	// Product is set for purchase events.
	Product *Product
	// ButtonID is set for EventCustomAction.
	ButtonID string
	// Entitlement is the state after the event.
	Entitlement Entitlement
	// Err is set for failure events.
	Err error
}

// Handler handles one event.
type Handler func(Event)

// Handlers maps event kinds to callbacks. Kinds without a handler are
// ignored.
//
//	paywall.Handlers{
//	    paywall.EventPurchased: func(e paywall.Event) { app.SetEntitlement(e.Entitlement) },
//	    paywall.EventDismissed: func(paywall.Event) { router.Back() },
//	}
type Handlers map[EventKind]Handler

// On sets the handler for kind and returns h. A nil h is allocated.
func (h Handlers) On(kind EventKind, fn Handler) Handlers {
	if h == nil {
		h = make(Handlers)
	}
	h[kind] = fn
	return h
}

func (h Handlers) emit(e Event) {
	if fn := h[e.Kind]; fn != nil {
		fn(e)
	}
}

func (h Handlers) clone() Handlers {
	out := make(Handlers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
