// Audit script for inspecting archived session ledgers.
// Run with: go run ./scripts/audit.go [session-id]
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/veracity-ai/veracity/internal/store"
)

func main() {
	// Load environment
	envFile := os.Getenv("VERACITY_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	dbURL := os.Getenv("AUDIT_DATABASE_URL")
	if dbURL == "" {
		log.Fatal("AUDIT_DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to audit database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping audit database: %v", err)
	}

	ledgers := store.NewLedgerStore(pool)
	if err := ledgers.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if len(os.Args) > 1 {
		showSession(ctx, ledgers, os.Args[1])
		return
	}

	listSessions(ctx, ledgers)
}

func listSessions(ctx context.Context, ledgers *store.LedgerStore) {
	ids, err := ledgers.ListSessionIDs(ctx, 50)
	if err != nil {
		log.Fatalf("Failed to list archived sessions: %v", err)
	}
	if len(ids) == 0 {
		fmt.Println("No archived sessions")
		return
	}

	fmt.Printf("Archived sessions (%d):\n", len(ids))
	for _, id := range ids {
		record, err := ledgers.Get(ctx, id)
		if err != nil {
			log.Printf("  %s: %v", id, err)
			continue
		}
		fmt.Printf("  %s  observations=%d claims=%d  goal=%q\n",
			id, len(record.Observations), len(record.Claims), record.Goal)
	}
}

func showSession(ctx context.Context, ledgers *store.LedgerStore, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		log.Fatalf("Invalid session id: %v", err)
	}

	record, err := ledgers.Get(ctx, id)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	fmt.Printf("Session %s\n", id)
	fmt.Printf("Goal: %s\n", record.Goal)
	fmt.Printf("Created: %s\n\n", record.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Printf("Observations (%d):\n", len(record.Observations))
	for id, obs := range record.Observations {
		fmt.Printf("  [%s] %s (%s) confidence=%.2f\n", id, obs.SourceID, obs.SourceType, obs.Confidence)
	}

	fmt.Printf("\nClaims (%d):\n", len(record.Claims))
	for _, claim := range record.Claims {
		fmt.Println(claim.AuditTrail())
		fmt.Println()
	}
}
