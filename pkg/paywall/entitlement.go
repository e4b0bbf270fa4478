package paywall

import "time"

// Source records what granted an Entitlement.
type Source string

const (
	SourceNone     Source = ""
	SourcePurchase Source = "purchase"
	SourceRestore  Source = "restore"
)

// Entitlement is the user's premium state. It is owned by the application:
// the presenter receives it with each presentation and hands back the
// updated value, it never keeps a global copy.
type Entitlement struct {
	Premium   bool
	Source    Source
	UpdatedAt time.Time
}

// Grant returns e with premium access granted by src at at.
func (e Entitlement) Grant(src Source, at time.Time) Entitlement {
	return Entitlement{Premium: true, Source: src, UpdatedAt: at}
}
