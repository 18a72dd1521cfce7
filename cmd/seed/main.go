package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-level-upgrade/config"
	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	pginfra "github.com/oksasatya/go-level-upgrade/internal/infrastructure/postgres"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

// Fixture accounts sit on both sides of each threshold so a single upgrade run
// shows which ones move.
var fixtures = []entity.User{
	{ID: "u1", Name: "Ana", Email: "a@example.com", Level: entity.LevelBasic, LoginCount: 49},
	{ID: "u2", Name: "Ben", Email: "b@example.com", Level: entity.LevelBasic, LoginCount: 50},
	{ID: "u3", Name: "Cai", Email: "c@example.com", Level: entity.LevelSilver, LoginCount: 80, RecommendCount: 29},
	{ID: "u4", Name: "Dee", Email: "d@example.com", Level: entity.LevelSilver, LoginCount: 80, RecommendCount: 30},
	{ID: "u5", Name: "Eli", Email: "e@example.com", Level: entity.LevelGold, LoginCount: 500, RecommendCount: 1_000_000},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer pool.Close()

	svc := application.NewUserService(pginfra.NewUserRepository(pool), logger)
	if err := svc.DeleteAll(ctx); err != nil {
		log.Fatalf("failed to clear users: %v", err)
	}

	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	for _, f := range fixtures {
		u := f
		u.Password = hash
		if err := svc.Add(ctx, &u); err != nil {
			log.Fatalf("failed to seed %s: %v", u.ID, err)
		}
		fmt.Printf("seeded user: id=%s email=%s level=%s logins=%d recommends=%d\n",
			u.ID, u.Email, u.Level, u.LoginCount, u.RecommendCount)
	}
	fmt.Printf("password for all users: %s\n", password)

	token, exp, err := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL).GenerateAccessToken(cfg.AdminUserID)
	if err != nil {
		log.Fatalf("failed to sign admin token: %v", err)
	}
	fmt.Printf("admin token (sub=%s, expires %s):\n%s\n", cfg.AdminUserID, exp.Format(time.RFC3339), token)
}
