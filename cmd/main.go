package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"AdvisorDesk/internal/appmanager"
	"AdvisorDesk/internal/logger"
)

// connString builds the Postgres DSN from DB_* env vars.
func connString() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"), os.Getenv("DB_NAME"), envOr("DB_SSLMODE", "disable"),
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// .env is optional outside local dev
	_ = godotenv.Load(envOr("ENV_FILE", ".env"))

	if os.Getenv("DB_HOST") != "" {
		db, err := sql.Open("postgres", connString())
		if err != nil {
			log.Fatal("failed to open DB:", err)
		}
		defer db.Close()
		appmanager.SetDB(db)

		pool, err := pgxpool.New(context.Background(), connString())
		if err != nil {
			log.Fatal("failed to create pgx pool:", err)
		}
		defer pool.Close()
		appmanager.SetPgxPool(pool)
	} else {
		log.Println("DB_HOST not set; running without client directory or persistence")
	}

	manager := appmanager.NewAppManager()

	servicesCfg, err := appmanager.LoadServiceSequence(envOr("SERVICES_FILE", "services.yaml"))
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	if err := manager.AutoRegisterServices(servicesCfg); err != nil {
		log.Fatal("failed to register services:", err)
	}
	if err := manager.StartAll(); err != nil {
		_ = manager.StopAll()
		log.Fatal("failed to start:", err)
	}
	logger.L().Info("advisor desk importer running")

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Println("failed to stop:", err)
	}
}
