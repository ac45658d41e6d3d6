package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"holdem-live/apps/server/internal/config"
)

// Open builds the table store and hand archive named by cfg. A SQL table store is shared
// with the "sql" archive so both use one connection pool.
func Open(ctx context.Context, cfg *config.Config) (TableStore, HandArchive, error) {
	var (
		tables TableStore
		shared *SQLStore
	)
	switch kind := strings.ToLower(strings.TrimSpace(cfg.Store.Tables)); kind {
	case "", "memory":
		tables = NewMemoryStore()
	case "sqlite", "postgres", "mysql":
		s, err := OpenSQL(kind, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		tables, shared = s, s
	case "redis":
		s, err := OpenRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		tables = s
	default:
		return nil, nil, fmt.Errorf("unknown table store %q", cfg.Store.Tables)
	}

	var archives MultiArchive
	fail := func(err error) (TableStore, HandArchive, error) {
		_ = archives.Close()
		_ = tables.Close()
		return nil, nil, err
	}
	for _, name := range strings.Split(cfg.Store.Archive, ",") {
		switch name = strings.ToLower(strings.TrimSpace(name)); name {
		case "":
		case "memory":
			archives = append(archives, NewMemoryArchive())
		case "sql":
			if shared != nil {
				archives = append(archives, sharedArchive{shared})
				continue
			}
			s, err := OpenSQL(cfg.Store.SQLDriver, cfg.Store.DSN)
			if err != nil {
				return fail(err)
			}
			archives = append(archives, s)
		case "gorm":
			db, err := OpenGorm(cfg.Store.GormDriver, cfg.Store.GormDSN)
			if err != nil {
				return fail(err)
			}
			a, err := NewGormArchive(db)
			if err != nil {
				return fail(err)
			}
			archives = append(archives, a)
		case "amqp":
			archives = append(archives, NewAMQPArchive(cfg.AMQP.URL, cfg.AMQP.Queue))
		default:
			return fail(errors.New("unknown hand archive " + name))
		}
	}
	if len(archives) == 1 {
		return tables, archives[0], nil
	}
	return tables, archives, nil
}

// sharedArchive does not close the SQL handle it borrows from the table store.
type sharedArchive struct{ *SQLStore }

func (sharedArchive) Close() error { return nil }
