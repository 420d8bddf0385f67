// Command tenantcredits seeds or tops up a tenant's credit pools. It is an
// operator tool; there is no public API for granting credits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/infra"
	"server/internal/sqlinline"
)

func main() {
	var (
		tenantFlag       string
		packFlag         int
		subscriptionFlag int
		vipFlag          bool
	)

	flag.StringVar(&tenantFlag, "tenant", "", "tenant ID to credit")
	flag.IntVar(&packFlag, "pack", 0, "pack credits to add")
	flag.IntVar(&subscriptionFlag, "subscription", 0, "subscription credits to add")
	flag.BoolVar(&vipFlag, "vip", false, "mark the tenant as vip (unlimited generations)")
	flag.Parse()

	tenantID := strings.TrimSpace(tenantFlag)
	if tenantID == "" {
		exitWithError(errors.New("-tenant is required"))
	}
	if packFlag < 0 || subscriptionFlag < 0 {
		exitWithError(errors.New("credit grants must not be negative"))
	}
	if packFlag == 0 && subscriptionFlag == 0 && !vipFlag {
		exitWithError(errors.New("nothing to grant: provide -pack, -subscription or -vip"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tenantcredits").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	row := runner.QueryRow(ctx, sqlinline.QGrantTenantCredits, tenantID, vipFlag, packFlag, subscriptionFlag)

	var (
		updatedID           string
		vip                 bool
		packCredits         int
		subscriptionCredits int
	)
	if err := row.Scan(&updatedID, &vip, &packCredits, &subscriptionCredits); err != nil {
		exitWithError(fmt.Errorf("failed to grant credits: %w", err))
	}

	fmt.Printf("Tenant %s updated\n", updatedID)
	fmt.Printf("vip=%v\n", vip)
	fmt.Printf("pack_credits=%d\n", packCredits)
	fmt.Printf("subscription_credits=%d\n", subscriptionCredits)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
