package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"points/internal/domain/point"
	"points/internal/infrastructure/backend"
	"points/internal/infrastructure/postgres/listener"
	"points/internal/interfaces/worker"
	"points/internal/shared/config"
)

const usage = `Points Admin CLI - Maintenance commands for the point service

Usage:
  admin <command> [options]

Commands:
  loadtest   Drive concurrent random charges and uses, then audit every account
  verify     Replay account history and compare it with the stored balance
  watch      Stream history records as they are appended (postgres backend)

Examples:
  # Hammer 10 accounts with 5000 operations on 16 workers
  admin loadtest --accounts=10 --ops=5000 --workers=16

  # Start each account at 10000 points and cap throughput
  admin loadtest --accounts=3 --initial=10000 --rate=200

  # Audit specific accounts
  admin verify --account-id=1,2,3

  # Follow history inserts from every API instance
  STORE_BACKEND=postgres admin watch
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "loadtest":
		runLoadTest(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func runLoadTest(args []string) {
	fs := flag.NewFlagSet("loadtest", flag.ExitOnError)

	accounts := fs.Int("accounts", 5, "Number of accounts to spread operations over")
	firstID := fs.Int64("first-id", 1, "First account ID; accounts are consecutive")
	ops := fs.Int("ops", 1000, "Total number of charge/use operations")
	workers := fs.Int("workers", 8, "Number of concurrent workers")
	initial := fs.Int64("initial", 10000, "Points charged to each account before the run")
	maxAmount := fs.Int64("max-amount", 500, "Upper bound of a single operation amount")
	opsPerSec := fs.Float64("rate", 0, "Maximum operations per second across all workers (0 = unlimited)")
	timeoutStr := fs.String("timeout", "10m", "Timeout for the whole run (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin loadtest [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *accounts < 1 || *ops < 0 || *maxAmount < 1 || *firstID < 1 {
		fmt.Println("Error: --accounts, --max-amount and --first-id must be positive")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer b.Close()
	svc := b.NewService(cfg)

	ids := make([]point.AccountID, *accounts)
	baseline := make(map[point.AccountID]int64, len(ids))
	for i := range ids {
		ids[i] = point.AccountID(*firstID + int64(i))
		acct := mustCharge(ctx, svc, ids[i], *initial)
		baseline[ids[i]] = acct.Balance
	}

	tally := worker.NewTally()
	jobs := make([]worker.Job, 0, *ops)
	for range *ops {
		typ := point.TransactionCharge
		if rand.IntN(2) == 0 {
			typ = point.TransactionUse
		}
		id := ids[rand.IntN(len(ids))]
		jobs = append(jobs, worker.NewMutationJob(svc, id, 1+rand.Int64N(*maxAmount), typ, tally))
	}

	log.Printf("Starting load test: %d ops over %d account(s) with %d workers", len(jobs), len(ids), *workers)
	startTime := time.Now()

	pool := worker.NewPool(*workers, 0, *workers*4)
	pool.SetRateLimit(*opsPerSec, *workers)
	pool.Start()
	pool.SubmitBatch(ctx, jobs)
	if err := pool.Shutdown(ctx); err != nil {
		log.Printf("Worker pool did not drain: %v", err)
	}

	elapsed := time.Since(startTime)
	summary := tally.Summary()
	fmt.Printf("\n=== Load test ===\n")
	fmt.Printf("  Operations:    %d in %v\n", len(jobs), elapsed)
	fmt.Printf("  Succeeded:     %d\n", summary.Succeeded)
	fmt.Printf("  Insufficient:  %d\n", summary.Insufficient)
	fmt.Printf("  Lock timeouts: %d\n", summary.TimedOut)
	fmt.Printf("  Failed:        %d\n", summary.Failed)

	failed := false
	for _, id := range ids {
		res, err := svc.Audit(context.WithoutCancel(ctx), id)
		if err != nil {
			log.Printf("Audit of account %d failed: %v", id, err)
			failed = true
			continue
		}
		expected := baseline[id] + tally.Net(id)
		ok := res.Consistent() && res.Account.Balance == expected
		printAudit(id, res, &expected)
		if !ok {
			failed = true
		}
	}

	if failed {
		log.Fatalf("Load test found inconsistent accounts")
	}
	log.Printf("Load test completed in %v", elapsed)
}

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	accountIDStr := fs.String("account-id", "", "Account ID(s) to verify (comma-separated for multiple)")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin verify [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin verify --account-id=1")
		fmt.Println("  admin verify --account-id=1,2,3")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ids, err := parseAccountIDs(*accountIDStr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(ids) == 0 {
		fmt.Println("Error: must specify --account-id")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store.Backend == config.BackendMemory {
		log.Println("Warning: memory backend starts empty, every account will verify as zero")
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer b.Close()
	svc := b.NewService(cfg)

	inconsistent := 0
	for _, id := range ids {
		res, err := svc.Audit(ctx, id)
		if err != nil {
			log.Fatalf("Audit of account %d failed: %v", id, err)
		}
		printAudit(id, res, nil)
		if !res.Consistent() {
			inconsistent++
		}
	}

	if inconsistent > 0 {
		log.Fatalf("%d of %d account(s) are inconsistent", inconsistent, len(ids))
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	accountIDStr := fs.String("account-id", "", "Only print records for these account ID(s)")

	fs.Usage = func() {
		fmt.Println("Usage: admin watch [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ids, err := parseAccountIDs(*accountIDStr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	filter := make(map[point.AccountID]bool, len(ids))
	for _, id := range ids {
		filter[id] = true
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store.Backend != config.BackendPostgres {
		log.Fatalf("watch requires STORE_BACKEND=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := listener.NewHistoryListener(cfg.Database.ConnectionString(), func(rec point.TransactionRecord) {
		if len(filter) > 0 && !filter[rec.AccountID] {
			return
		}
		fmt.Printf("%s  #%-8d account=%-8d %-6s %d\n",
			rec.Timestamp.Format(time.RFC3339Nano), rec.ID, rec.AccountID, rec.Type, rec.Amount)
	})
	l.Start(ctx)

	<-ctx.Done()
	l.Stop()
}

func mustCharge(ctx context.Context, svc *point.Service, id point.AccountID, amount int64) point.Account {
	if amount <= 0 {
		acct, err := svc.Query(ctx, id)
		if err != nil {
			log.Fatalf("Failed to read account %d: %v", id, err)
		}
		return acct
	}
	acct, err := svc.Charge(ctx, id, amount)
	if err != nil {
		log.Fatalf("Failed to seed account %d: %v", id, err)
	}
	return acct
}

func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func parseAccountIDs(s string) ([]point.AccountID, error) {
	var ids []point.AccountID
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid account ID '%s'", p)
		}
		ids = append(ids, point.AccountID(id))
	}
	return ids, nil
}

func printAudit(id point.AccountID, res point.AuditResult, expected *int64) {
	status := "OK"
	if !res.Consistent() {
		status = "MISMATCH"
	}
	if expected != nil && res.Account.Balance != *expected {
		status = "MISMATCH"
	}

	fmt.Printf("\n=== Account %d [%s] ===\n", id, status)
	fmt.Printf("  Balance:        %d\n", res.Account.Balance)
	fmt.Printf("  Replayed:       %d\n", res.Replayed)
	fmt.Printf("  History length: %d\n", res.Records)
	if expected != nil {
		fmt.Printf("  Expected:       %d\n", *expected)
	}
	if res.ReplayErr != nil {
		fmt.Printf("  Replay error:   %v\n", res.ReplayErr)
	}
}
