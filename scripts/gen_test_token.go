//go:build ignore

// Prints a JWT for a verified test user, creating the user when missing.
//
//	go run scripts/gen_test_token.go -email test@luchgpt.dev -admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/storage"
	"codeberg.org/luchgpt/server/luchgpt/users"
)

func main() {
	email := flag.String("email", "test@luchgpt.dev", "test user email")
	admin := flag.Bool("admin", false, "grant the admin flag")
	premium := flag.Bool("premium", false, "grant a premium subscription without expiry")
	flag.Parse()

	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := storage.NewPool(ctx, cfg.DatabaseURL, storage.DefaultPoolOptions())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := storage.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	repo := users.NewRepository(pool)

	user, err := repo.FindOrCreateVerified(ctx, "test", *email, *email)
	if err != nil {
		log.Fatalf("Failed to create test user: %v", err)
	}

	if *premium {
		if user, err = repo.SetSubscription(ctx, user.ID, users.TierPremium, nil); err != nil {
			log.Fatalf("Failed to grant premium: %v", err)
		}
	}

	if *admin {
		if _, err := pool.Exec(ctx, `UPDATE users SET is_admin = true WHERE id = $1`, user.ID); err != nil {
			log.Fatalf("Failed to grant admin: %v", err)
		}
	}

	token, err := auth.GenerateJWT(user.ID, user.EmailAddress(), *admin)
	if err != nil {
		log.Fatalf("Failed to generate JWT: %v", err)
	}

	fmt.Printf("Test user %s (ID: %d, tier: %s)\n", user.EmailAddress(), user.ID, user.Tier)
	fmt.Printf("\nTest JWT Token:\n%s\n\n", token)
	fmt.Printf("Export this token for testing:\nexport TEST_TOKEN=\"%s\"\n", token)
}
