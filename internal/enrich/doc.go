// Package enrich implements the two context lookups run before drafting:
// mailbox history (Gmail) and public company research (the web).
//
// Both return modal.ErrUnavailable when they have nothing to offer for a
// contact. Any other error means the lookup itself broke.
package enrich
