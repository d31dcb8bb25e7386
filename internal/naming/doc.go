// Package naming converts raw identifiers into the canonical and display
// forms used for operation ids, method names, packages and env vars.
//
// The canonical form is lowercase ASCII words joined by underscores, where
// every word starts with a letter ("list_events", "oauth2_token"). The
// display form capitalizes each word and drops the separators
// ("ListEvents"). [Display] and [FromDisplay] are inverses on canonical ids,
// so two distinct canonical ids never share a display name.
package naming
