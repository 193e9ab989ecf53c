package db

import (
	"context"
	"os"
	"testing"

	"hrops/internal/platform/config"
)

func TestSeedIsIdempotent(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := config.Config{
		DatabaseURL:       dbURL,
		SeedAdminEmail:    "seed-admin@test.local",
		SeedAdminPassword: "ChangeMe123!",
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// A second run must find the existing admin row instead of inserting a
	// duplicate and tripping the email unique constraint.
	for i := 0; i < 2; i++ {
		if err := Seed(ctx, pool, cfg); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(1) FROM users WHERE email = $1", cfg.SeedAdminEmail).Scan(&count); err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one seeded admin, got %d", count)
	}
}
