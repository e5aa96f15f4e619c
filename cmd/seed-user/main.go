// Command seed-user creates or updates a user with the given role.
// Intended for bootstrapping the first admin account:
//
//	seed-user -email admin@example.org -password 'secret' -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"referral_backend/internal/auth/repository"
	"referral_backend/platform/config"
	"referral_backend/platform/db"
	"referral_backend/platform/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	exitStartupFailure = 1
	exitConfigError    = 2
)

func main() {
	email := flag.String("email", "", "user email")
	password := flag.String("password", "", "user password")
	role := flag.String("role", "viewer", "user role (admin or viewer)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "email and password are required")
		os.Exit(exitConfigError)
	}
	if *role != "admin" && *role != "viewer" {
		fmt.Fprintln(os.Stderr, "role must be admin or viewer")
		os.Exit(exitConfigError)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(exitConfigError)
	}

	log := logger.New(cfg.Env)
	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(exitStartupFailure)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		os.Exit(exitStartupFailure)
	}

	user, err := repository.New(pool).CreateUser(ctx, *email, string(hash), *role)
	if err != nil {
		log.Error("failed to seed user", "error", err)
		os.Exit(exitStartupFailure)
	}

	log.Info("user seeded", "id", user.ID, "email", user.Email, "role", user.Role)
}
