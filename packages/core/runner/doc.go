// Package runner drives a batch run: optional login, then one request per
// record in input order, skipping records already in the ledger and saving
// each successful body before marking it done.
//
// A run moves through idle, login_pending (only when login is configured),
// processing, and then done or aborted. Requests are strictly sequential and
// separated by a random delay drawn from the configured interval.
package runner
