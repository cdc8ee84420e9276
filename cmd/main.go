package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepos/canteen/internal/canteen"
	httpapi "github.com/gatepos/canteen/internal/httpapi/v1"
	"github.com/gatepos/canteen/internal/printer"
	"github.com/gatepos/canteen/internal/service/billing"
	"github.com/gatepos/canteen/internal/storage/memory"
	pgstore "github.com/gatepos/canteen/internal/storage/postgres"
	sqlitestore "github.com/gatepos/canteen/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()

	switch {
	case strings.TrimSpace(os.Getenv("DATABASE_URL")) != "":
		pg, err := pgstore.Open(ctx, strings.TrimSpace(os.Getenv("DATABASE_URL")))
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	case strings.TrimSpace(os.Getenv("CANTEEN_DB")) != "":
		path := strings.TrimSpace(os.Getenv("CANTEEN_DB"))
		sq, err := sqlitestore.New(path)
		if err != nil {
			logger.Error("failed to open sqlite database", "path", path, "err", err)
			os.Exit(1)
		}
		store = sq
		closeFn = func() { _ = sq.Close() }
		logger.Info("storage backend: sqlite", "path", path)
	default:
		mem := memory.New()
		seedDev(mem, logger)
		store = mem
		logger.Info("storage backend: memory")
	}

	var notifier billing.Notifier
	if url := strings.TrimSpace(os.Getenv("PRINT_SERVICE_URL")); url != "" {
		notifier = printer.New(url, logger)
		logger.Info("print service configured", "url", url)
	}

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(store, notifier, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("canteen service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedDev loads a default operator and a couple of persons into the memory
// store so the API is usable straight after `go run`.
func seedDev(store *memory.Store, l *slog.Logger) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		l.Error("dev seed failed", "err", err)
		return
	}
	op := canteen.Operator{ID: uuid.New(), Username: "admin", PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	store.SeedOperator(op)
	student := canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Demo Student", RefCode: "S-1001", Dept: "computer_science"}
	staff := canteen.Person{ID: uuid.New(), Kind: canteen.KindStaff, Name: "Demo Staff", RefCode: "E-2001", Dept: "teaching"}
	store.SeedPerson(student)
	store.SeedPerson(staff)
	l.Info("DEV seed (memory)", "operator", op.Username, "student_id", student.ID.String(), "staff_id", staff.ID.String())
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("operator: admin / admin\n")
	fmt.Printf("student_id: %s\n", student.ID.String())
	fmt.Printf("staff_id: %s\n", staff.ID.String())
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	case "pretty":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
}
