package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/openfit/relay/internal/infra/nutrition"
	"github.com/openfit/relay/internal/observe/report"
	"github.com/openfit/relay/internal/resilience"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	ctx := context.Background()

	// 1. Build the resilience pipeline with defaults
	reporter := report.New(nil)
	pipe, err := resilience.NewPipeline(resilience.DefaultConfig, reporter)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	// 2. Watch surfaced errors
	go func() {
		for e := range reporter.Subscribe() {
			p := e.Kind.Presentation()
			fmt.Printf("⚠️  %s: %s\n", p.Title, e.Message)
		}
	}()

	// 3. Nutrition client against the public API
	client := nutrition.NewClient(nutrition.Config{}, pipe)

	fmt.Println("=== Testing Resilient Lookups ===")

	// 4. Repeated lookups of the same barcode to exercise dedup + breaker
	for i := 0; i < 5; i++ {
		start := time.Now()
		p, err := client.ProductByBarcode(ctx, "737628064502")
		if err != nil {
			log.Printf("Lookup %d failed: %v", i+1, err)
			continue
		}
		name, _ := p.Fields["product_name"].(string)
		fmt.Printf("Lookup %d: %s (%s) in %v\n", i+1, name, p.Code, time.Since(start).Round(time.Millisecond))

		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println()

	// 5. Show breaker state per upstream
	fmt.Println("=== Breaker State ===")
	for _, svc := range pipe.Breaker.Services() {
		fmt.Printf("%s: %s\n", svc, pipe.Breaker.State(svc))
	}

	// 6. Show attempt counters
	fmt.Printf("Recorded attempts for product lookups: %d\n", pipe.Retry.Attempts("product:737628064502"))
}
