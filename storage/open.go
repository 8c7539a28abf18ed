package storage

import (
	"context"
	"fmt"
)

// Open builds the CVManager for the named driver: "file" (dsn is a folder),
// "sqlite" (dsn is a database path) or "postgres" (dsn is a connection url).
func Open(ctx context.Context, driver, dsn string) (CVManager, error) {
	switch driver {
	case "file", "":
		return NewFileCVManager(dsn)
	case "sqlite":
		return NewSQLiteCVManager(dsn)
	case "postgres":
		return NewPostgresCVManager(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
