package migrations

import (
	"time"

	"github.com/calvinalkan/authdoc/internal/document"
	"github.com/calvinalkan/authdoc/internal/migrate"
)

// AuthSessionKey is the storage key of the auth session record.
const AuthSessionKey = "auth/session.json"

// Auth session schema versions.
const (
	// SessionV1 is the untagged legacy shape with subscriptionExpiry.
	SessionV1 document.Version = 1
	// SessionV2 renames subscriptionExpiry to planExpiry and always
	// carries lastLoginAt.
	SessionV2 document.Version = 2

	SessionCurrent = SessionV2
)

// Field names touched by the v1 -> v2 rule.
const (
	fieldSubscriptionExpiry = "subscriptionExpiry"
	fieldPlanExpiry         = "planExpiry"
	fieldLastLoginAt        = "lastLoginAt"
)

// AuthSessionV2 returns the step migrating the auth session to [SessionV2].
func AuthSessionV2(opts Options) migrate.Step {
	return migrate.Step{
		Key:       AuthSessionKey,
		Target:    SessionV2,
		Transform: sessionV1ToV2,
		Now:       opts.Now,
		Logger:    opts.Logger,
	}
}

// sessionV1ToV2 moves subscriptionExpiry to planExpiry (a present null is
// moved too) and fills a missing or falsy lastLoginAt with now.
func sessionV1ToV2(doc document.Document, now time.Time) error {
	if expiry, ok := doc[fieldSubscriptionExpiry]; ok {
		doc[fieldPlanExpiry] = expiry
		delete(doc, fieldSubscriptionExpiry)
	}

	if !document.Truthy(doc[fieldLastLoginAt]) {
		doc[fieldLastLoginAt] = document.FormatTimestamp(now)
	}

	return nil
}
