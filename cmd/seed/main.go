package main

import (
	"context"
	"errors"
	"log"

	"aizeeno/internal/config"
	"aizeeno/internal/db"
	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
	"aizeeno/internal/repository"
	"aizeeno/internal/vault"
)

// seedUser describes a demo account to create. Legacy marks records that get
// an unsalted SHA-1 digest, matching accounts imported from the old system;
// they exercise the transparent credential upgrade on first login.
type seedUser struct {
	Username string
	Password string
	Name     string
	Email    string
	Plan     model.Plan
	Paid     bool
	Legacy   bool
}

var demoUsers = []seedUser{
	{Username: "demo", Password: "demo1234", Name: "Demo User", Email: "demo@example.com", Plan: model.PlanFree},
	{Username: "pro_user", Password: "pro12345", Name: "Pro User", Email: "pro@example.com", Plan: model.PlanPro, Paid: true},
	{Username: "legacy_user", Password: "legacy123", Name: "Legacy User", Email: "legacy@example.com", Plan: model.PlanFree, Legacy: true},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()
	if cfg.DataBackend != "mysql" {
		log.Fatal("seeding requires DATA_BACKEND=mysql; the memory backend starts empty by design")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Conversation{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repo := repository.NewUserRepository(gormDB)
	ctx := context.Background()

	created, skipped := 0, 0
	for _, su := range demoUsers {
		user, err := buildUser(su)
		if err != nil {
			log.Fatalf("Failed to build user %s: %v", su.Username, err)
		}
		switch err := repo.Create(ctx, user); {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrUsernameTaken):
			log.Printf("User %s already exists, skipping", su.Username)
			skipped++
		default:
			log.Fatalf("Failed to create user %s: %v", su.Username, err)
		}
	}

	log.Printf("Seed completed: %d created, %d skipped", created, skipped)
}

func buildUser(su seedUser) (*model.User, error) {
	user := &model.User{
		Username:         su.Username,
		Name:             su.Name,
		Email:            su.Email,
		SubscriptionPlan: su.Plan,
		PaymentActive:    su.Paid,
	}
	if su.Legacy {
		user.PasswordHash = vault.LegacyHash(su.Password)
		return user, nil
	}
	digest, salt, err := vault.HashPassword(su.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = digest
	user.Salt = &salt
	return user, nil
}
