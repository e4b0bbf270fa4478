package journal

import (
	"context"
	"fmt"
	"strings"
)

// Open returns the Store named by dsn:
//
//	memory:                      in-process
//	sqlite:<path>                SQLite file (sqlite::memory: for a scratch db)
//	postgres://… postgresql://…  PostgreSQL
//	redis://… rediss://…         Redis
//	mongodb://… mongodb+srv://…  MongoDB
func Open(ctx context.Context, dsn string) (Store, error) {
	scheme, rest, ok := strings.Cut(dsn, ":")
	if !ok {
		return nil, fmt.Errorf("journal: dsn %q has no scheme", dsn)
	}

	var (
		s   Store
		err error
	)
	switch strings.ToLower(scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("journal: dsn %q has no path", dsn)
		}
		s, err = OpenSQLite(ctx, rest)
	case "postgres", "postgresql":
		s, err = OpenPostgres(ctx, dsn)
	case "redis", "rediss":
		s, err = OpenRedis(ctx, dsn)
	case "mongodb", "mongodb+srv":
		s, err = OpenMongo(ctx, dsn)
	default:
		return nil, fmt.Errorf("journal: unsupported scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", scheme, err)
	}
	return s, nil
}
