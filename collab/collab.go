// Package collab defines the external collaborator interfaces the
// simulation core calls through thin trait surfaces (spec §6 "External
// collaborators the core calls") so that password hashing, token issuance,
// HTML sanitization and mail delivery stay swappable and the core never
// imports a concrete crypto/mail/template library directly. Package
// collab/memdefault supplies the in-memory defaults used by tests and by
// cmd/engine when no external implementation is configured.
package collab

import "context"

// PasswordHasher hashes and verifies player credentials.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

// TokenIssuer issues and validates session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, subject string, ttlSeconds int64) (string, error)
	Validate(ctx context.Context, token string) (subject string, err error)
}

// Sanitizer cleans untrusted HTML/CSS/URL content (e.g. player-authored
// clan descriptions, chat) before it is stored or rendered.
type Sanitizer interface {
	CleanHTML(input string) string
	CleanURL(input string) (string, bool)
}

// Mailer enqueues outbound mail; the core never sends mail synchronously.
type Mailer interface {
	Enqueue(ctx context.Context, to, subject, body string) error
}

// Collaborators bundles one instance of each external-collaborator trait,
// spec §9's "explicit Services-equivalent" — threaded through cmd/gateway
// as a single struct field instead of package-level singletons, so every
// handler closes over the same four interfaces without importing
// collab/memdefault directly.
type Collaborators struct {
	Hasher    PasswordHasher
	Issuer    TokenIssuer
	Sanitizer Sanitizer
	Mailer    Mailer
}
