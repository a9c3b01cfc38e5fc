package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Floods a running server with concurrent add-item requests for one
// (order, item) pair and checks that the accepted quantity never exceeds
// the available stock reported before the run.

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	orderID := flag.Int64("order", 1, "target order id")
	itemID := flag.Int64("item", 1, "target item id")
	requests := flag.Int("requests", 50, "number of concurrent requests")
	quantity := flag.Int("quantity", 1, "quantity per request")
	flag.Parse()

	available, err := fetchAvailable(*baseURL, *itemID)
	if err != nil {
		log.Fatalf("failed to read item availability: %v", err)
	}

	var accepted atomic.Int32
	var rejected atomic.Int32
	var failed atomic.Int32

	body, _ := json.Marshal(map[string]interface{}{
		"order_id": *orderID,
		"item_id":  *itemID,
		"quantity": *quantity,
	})
	endpoint := fmt.Sprintf("%s/api/v1/orders/%d/items", *baseURL, *orderID)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
			if err != nil {
				failed.Add(1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				accepted.Add(1)
			case http.StatusConflict:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	remaining, err := fetchAvailable(*baseURL, *itemID)
	if err != nil {
		log.Fatalf("failed to re-read item availability: %v", err)
	}

	reserved := int(accepted.Load()) * *quantity

	fmt.Println("========== STRESS RESULTS ==========")
	fmt.Printf("Available before:  %d\n", available)
	fmt.Printf("Total requests:    %d x %d units\n", *requests, *quantity)
	fmt.Printf("Accepted:          %d\n", accepted.Load())
	fmt.Printf("Rejected (409):    %d\n", rejected.Load())
	fmt.Printf("Transport errors:  %d\n", failed.Load())
	fmt.Printf("Available after:   %d\n", remaining)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("====================================")

	if reserved > available {
		fmt.Printf("FAIL: accepted %d units with only %d available\n", reserved, available)
		return
	}
	if remaining != available-reserved {
		fmt.Printf("FAIL: expected %d available after run, got %d\n", available-reserved, remaining)
		return
	}
	fmt.Println("PASS: no overselling, availability consistent")
}

func fetchAvailable(baseURL string, itemID int64) (int, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/items/%d", baseURL, itemID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var item struct {
		Available int `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return 0, err
	}
	return item.Available, nil
}
