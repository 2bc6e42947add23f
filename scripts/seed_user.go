package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/khoahotran/profile-card/adapters/persistence"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/internal/domain/user"
	"github.com/khoahotran/profile-card/pkg/auth"
	"github.com/khoahotran/profile-card/pkg/logger"
)

func main() {
	fmt.Println("adding user into database...")

	err := godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use system environment variables.")
	}

	email := flag.String("email", os.Getenv("SEED_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "account password")
	name := flag.String("name", os.Getenv("SEED_NAME"), "display name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatalf("email and password are required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("cannot hash password: %v", err)
	}

	ctx := context.Background()
	pool, err := persistence.NewPostgresPool(ctx, cfg, logger.NewNopLogger())
	if err != nil {
		log.Fatalf("cannot connect DB: %v", err)
	}
	defer pool.Close()

	u := &user.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
	}
	if *name != "" {
		u.Name = name
	}

	if err := persistence.NewPostgresUserRepo(pool).Upsert(ctx, u); err != nil {
		log.Fatalf("cannot add user: %v", err)
	}

	fmt.Printf("added or updated user '%s' (%s) successfully!\n", u.Email, u.ID)
}
