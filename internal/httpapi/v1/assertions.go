package v1

import (
    "github.com/gatepos/canteen/internal/storage/memory"
    "github.com/gatepos/canteen/internal/storage/postgres"
    "github.com/gatepos/canteen/internal/storage/sqlite"
)

// Compile-time interface assertions for the stores against the API's Store union.
var (
    _ Store = (*memory.Store)(nil)
    _ Store = (*postgres.Store)(nil)
    _ Store = (*sqlite.Store)(nil)
)
