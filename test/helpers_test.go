package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	webAuth "github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/store/gormstore"
	"github.com/MrEthical07/webAuth/store/memory"
	"github.com/MrEthical07/webAuth/store/postgres"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// backend is one CredentialStore implementation under test. grant adds
// permissions, since the stores expose that outside the engine port.
type backend struct {
	store webAuth.CredentialStore
	grant func(ctx context.Context, id string, perms ...webAuth.Permission) error
}

type backendMode struct {
	name string
	open func(t *testing.T) backend
}

// backendModes returns every store implementation to test.
// memory and sqlite are always available.
// Postgres is used when WEBAUTH_TEST_POSTGRES_DSN is set.
func backendModes(t *testing.T) []backendMode {
	t.Helper()
	modes := []backendMode{
		{
			name: "memory",
			open: func(t *testing.T) backend {
				s := memory.New()
				return backend{
					store: s,
					grant: func(_ context.Context, id string, perms ...webAuth.Permission) error {
						return s.Grant(id, perms...)
					},
				}
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) backend {
				s, err := gormstore.Open(filepath.Join(t.TempDir(), "webauth.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return backend{store: s, grant: s.Grant}
			},
		},
	}

	if dsn := os.Getenv("WEBAUTH_TEST_POSTGRES_DSN"); dsn != "" {
		modes = append(modes, backendMode{
			name: "postgres",
			open: func(t *testing.T) backend {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				db, err := postgres.Open(ctx, dsn)
				if err != nil {
					t.Skipf("cannot connect to postgres: %v", err)
				}
				t.Cleanup(func() { _ = db.Close() })
				require.NoError(t, postgres.Migrate(ctx, db))
				_, err = db.ExecContext(ctx, `TRUNCATE users CASCADE`)
				require.NoError(t, err)

				s := postgres.New(db)
				return backend{store: s, grant: s.Grant}
			},
		})
	}
	return modes
}

// fastConfig keeps password hashing cheap enough for table tests.
func fastConfig() webAuth.Config {
	cfg := webAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newEngine(t *testing.T, store webAuth.CredentialStore, rdb redis.UniversalClient, cfg webAuth.Config) *webAuth.Engine {
	t.Helper()
	b := webAuth.New().WithConfig(cfg).WithCredentialStore(store)
	if rdb != nil {
		b = b.WithRedis(rdb)
	}
	e, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}
