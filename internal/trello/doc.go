// Package trello is a minimal client for the Trello REST API, covering the
// operations the boardsync jobs need. Credentials travel as key/token query
// parameters on every request. 401 and 403 responses surface as AUTH-coded
// reconcile errors so a bad credential aborts a run before any mutation.
package trello
