package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tdnguyen/library-desk/internal/adapter/agent"
	"github.com/tdnguyen/library-desk/internal/adapter/handler"
	"github.com/tdnguyen/library-desk/internal/adapter/storage"
	"github.com/tdnguyen/library-desk/internal/core/service"
	"github.com/tdnguyen/library-desk/internal/port"
)

const fallbackSystemPrompt = "You are the front desk assistant of a small " +
	"library bookstore. Use the tools to search the catalog, place orders, " +
	"restock, reprice, and report inventory. Be concise and accurate."

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := getenv("HTTP_ADDR", ":8080")
	mysqlDSN := getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/librarydesk?parseTime=true")
	redisAddr := os.Getenv("REDIS_ADDR") // empty disables the duplicate-request guard
	model := getenv("ANTHROPIC_MODEL", "claude-3-7-sonnet-latest")
	promptFile := getenv("PROMPT_FILE", "prompts/system.txt")
	corsOrigins := strings.Split(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"), ",")

	// MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	if err := storage.InitSchema(ctx, db); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}
	if err := storage.Seed(ctx, db); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	// Redis (optional)
	var cache port.CacheRepository
	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		cache = storage.NewRedisAdapter(rdb)
		log.Println("connected to redis")
	} else {
		log.Println("REDIS_ADDR not set; duplicate-request guard disabled")
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	catalog := service.NewCatalogService(mysqlAdapter)

	systemPrompt := loadSystemPrompt(promptFile)
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		log.Println("WARNING: ANTHROPIC_API_KEY not set; the agent cannot reach the model")
	}
	anthropicAgent := agent.NewAnthropic(model, systemPrompt, agent.Registry(catalog))

	chat := service.NewChatService(mysqlAdapter, anthropicAgent)

	httpHandler := handler.NewHTTPHandler(chat, mysqlAdapter, cache)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: handler.CORS(corsOrigins, mux),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Println("connections closed")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadSystemPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("WARNING: cannot read prompt file %s (%v); using built-in prompt", path, err)
		return fallbackSystemPrompt
	}
	return string(data)
}
