package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tdnguyen/library-desk/internal/adapter/storage"
	"github.com/tdnguyen/library-desk/internal/core/service"
)

// Hammers CreateOrder with concurrent single-copy orders for one title
// and verifies the guarded stock decrement never oversells.
const (
	testISBN      = "9999999999999"
	testCustomer  = 999
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/librarydesk?parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(50)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	// Reset test fixtures
	if _, err := db.Exec(`
		INSERT INTO books (isbn, title, author, stock, price)
		VALUES (?, 'Stress Test Book', 'Nobody', ?, 9.99)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock)`,
		testISBN, initialStock,
	); err != nil {
		log.Fatalf("failed to seed book: %v", err)
	}
	if _, err := db.Exec(`
		INSERT IGNORE INTO customers (id, name, email)
		VALUES (?, 'Stress Tester', 'stress@example.com')`,
		testCustomer,
	); err != nil {
		log.Fatalf("failed to seed customer: %v", err)
	}

	catalog := service.NewCatalogService(storage.NewMySQLAdapter(db))

	var successCount atomic.Int32
	var failCount atomic.Int32
	var errCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			result, err := catalog.CreateOrder(ctx, fmt.Sprintf("stress-%d", n), testCustomer,
				[]service.OrderRequestItem{{ISBN: testISBN, Qty: 1}})
			if err != nil {
				errCount.Add(1)
				return
			}
			switch result.(type) {
			case service.OrderResult:
				successCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()
	errs := errCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Orders Placed:    %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Errors:           %d\n", errs)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail+errs == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d (+%d errors)\n",
			initialStock, totalRequests-initialStock, success, fail, errs)
	}

	var finalStock int
	if err := db.QueryRow(`SELECT stock FROM books WHERE isbn = ?`, testISBN).Scan(&finalStock); err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}
