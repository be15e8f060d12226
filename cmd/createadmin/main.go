// Command createadmin adds an admin profile to the Postgres profiles table so
// the account can sign in through the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"medibilling/portal/internal/authpw"
	"medibilling/portal/internal/config"
	"medibilling/portal/internal/logging"
	"medibilling/portal/internal/store"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "admin email address")
	password := flag.String("password", os.Getenv("ADMIN_INITIAL_PASSWORD"), "admin password (defaults to $ADMIN_INITIAL_PASSWORD)")
	flag.Parse()

	if err := run(*email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "createadmin: %v\n", err)
		os.Exit(1)
	}
}

func run(email, password string) error {
	if email == "" {
		return fmt.Errorf("-email is required")
	}
	hash, err := authpw.HashPassword(password)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	profile, err := store.NewPostgresStore(db, logger).CreateProfile(ctx, email, hash)
	if err != nil {
		return err
	}
	fmt.Printf("created admin profile %s (%s)\n", profile.Email, profile.ID)
	return nil
}
