package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/config"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/services"
)

func main() {
	var dbURLFlag string
	var olderThan time.Duration
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.DurationVar(&olderThan, "older-than", time.Hour, "report PENDING payments created before now minus this duration")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	sweeper := services.NewStalePaymentSweeper(
		database.NewPaymentRepository(db),
		olderThan,
		database.NewPaymentAuditRepository(db, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := sweeper.RunOnce(ctx)
	if err != nil {
		log.Fatalf("stale payment sweep failed: %v", err)
	}

	fmt.Printf("PENDING payments created before %s: %d\n", report.Cutoff.Format(time.RFC3339), len(report.Payments))
	for _, p := range report.Payments {
		fmt.Printf("  %s  booking=%s  amount=%.2f  transaction=%s  created=%s\n",
			p.ID, p.BookingID, p.Amount, p.TransactionIDValue(), p.CreatedAt.Format(time.RFC3339))
	}
}
