package v1

import (
    "context"

    "github.com/gatepos/canteen/internal/service/accounting"
    "github.com/gatepos/canteen/internal/service/billing"
    "github.com/gatepos/canteen/internal/service/reporting"
    "github.com/gatepos/canteen/internal/service/roster"
)

// Store unions the storage operations every service behind the API needs.
// The memory, sqlite and postgres stores all satisfy it.
type Store interface {
    accounting.Store
    billing.Repo
    billing.Writer
    roster.Repo
    roster.Writer
    reporting.Repo
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
    Ready(ctx context.Context) error
}
