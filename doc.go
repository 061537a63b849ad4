// Package presence maintains a denormalized, TTL-cached view of user
// identity and connection state for a social-content platform, kept in sync
// with a relational source of truth through idempotent lifecycle event
// handlers.
//
// Directory:
//   - Directory is the single owner of the presence state. It upserts user
//     records on connection events, flips them on disconnection, removes
//     them on deletion, and keeps a Redis write-through cache plus an
//     active-user set alongside the store. The cache is an accelerator, not
//     a transactional partner: store writes are authoritative and cache
//     failures are logged and absorbed.
//
// Active-user set:
//   - Session-activity checks go through Directory.IsUserActive, which
//     consults only set membership. The set carries one shared TTL that is
//     refreshed on every membership change, so a quiet system resets itself
//     instead of serving stale membership forever.
//
// Consumers:
//   - The consumer subpackage bridges an AMQP topic exchange to the
//     Directory, with per-message acknowledgment and a two-state failure
//     policy: poison messages are dropped, transient failures are requeued.
//   - The middleware/presencegate subpackage gates inbound HTTP requests on
//     token validity and active-session status.
package presence
