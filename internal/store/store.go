// Package store implements the Postgres persistence layer: flow
// configuration tables, the debtor directory and the decision audit
// log. All stores share one pgxpool; a missing debtor surfaces as
// domain.ErrDebtorNotFound.
package store
