// Package integration defines the pluggable data-source contract and the
// process-wide registry that resolves integrations by slug.
//
// A Definition describes one integration type: its identity, the schema of
// its instance-level configuration (e.g. OAuth client credentials), the
// schema of the per-tenant credential payload stored on a Connection, and
// the document pull operation. OAuth2-based integrations additionally
// implement the OAuth2 interface, composed from the embeddable Flow engine.
//
// Definitions are immutable once constructed. The Registry maps slugs to
// Definitions and can be rebuilt from configuration, allowing several named
// instances of the same integration type (distinct OAuth client credentials
// under distinct slugs).
package integration
