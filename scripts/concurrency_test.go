//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the asset
// assignment API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <asset_id> <employee1_id> [employee2_id ...]
//
// Or use the convenience environment variables:
//
//	ASSET_ID=<id>  EMPLOYEE_IDS=<e1,e2,...>  TOKEN=<session token>  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per employee) all attempting to assign the same
//     Inventory asset simultaneously.
//  2. Prints how many won the assignment vs. got a conflict.
//  3. Exactly one request should succeed; the asset row lock plus the partial
//     unique index (uniq_active_assignment) must reject every other request.
//
// Prerequisites:
//   - Server must be running with the asset in Inventory status.
//   - TOKEN must carry a valid session.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type assignResult struct {
	EmployeeID string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	token := os.Getenv("TOKEN")

	assetID := os.Getenv("ASSET_ID")
	employeeIDsEnv := os.Getenv("EMPLOYEE_IDS")

	var employeeIDs []string
	if employeeIDsEnv != "" {
		employeeIDs = strings.Split(employeeIDsEnv, ",")
	}

	// Support positional args: script <asset_id> [employee_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		assetID = args[0]
	}
	if len(args) >= 2 {
		employeeIDs = args[1:]
	}

	if assetID == "" {
		log.Fatal("Usage: ASSET_ID=<id> EMPLOYEE_IDS=<e1,e2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <asset_id> <employee1_id> [employee2_id ...]")
	}
	if len(employeeIDs) == 0 {
		log.Fatal("At least one employee ID must be provided via EMPLOYEE_IDS env or positional args")
	}

	fmt.Printf("=== Assignment Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Asset     : %s\n", assetID)
	fmt.Printf("Employees : %d\n\n", len(employeeIDs))

	results := make([]assignResult, len(employeeIDs))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, emp := range employeeIDs {
		wg.Add(1)
		go func(idx int, employeeID string) {
			defer wg.Done()
			<-start // wait for the barrier
			results[idx] = attemptAssign(serverAddr, token, assetID, strings.TrimSpace(employeeID))
		}(i, emp)
	}

	// Release all goroutines at once.
	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	// Tally results.
	var wins, conflicts, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] employee=%-12s err=%v\n", r.EmployeeID, r.Err)
		case r.StatusCode == http.StatusOK:
			wins++
			fmt.Printf("  [WIN ] employee=%-12s status=%d\n", r.EmployeeID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			conflicts++
			fmt.Printf("  [CONF] employee=%-12s status=%d msg=%s\n", r.EmployeeID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] employee=%-12s status=%d msg=%s\n", r.EmployeeID, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Wins      : %d\n", wins)
	fmt.Printf("Conflicts : %d\n", conflicts)
	fmt.Printf("Failures  : %d\n", failures)
	fmt.Printf("Total     : %d\n\n", len(employeeIDs))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("The asset row lock serializes concurrent assigns; the partial unique index")
	fmt.Println("(uniq_active_assignment) rejects a second open ledger row at the database level.")
	fmt.Printf("Wins recorded: %d — the test passes when exactly 1 request won.\n", wins)

	if wins != 1 || failures > 0 {
		os.Exit(1)
	}
}

// attemptAssign sends POST /api/assets/assign-existing for the given employee
// and reports the response status and message.
func attemptAssign(serverAddr, token, assetID, employeeID string) assignResult {
	url := fmt.Sprintf("%s/api/assets/assign-existing", serverAddr)
	body := fmt.Sprintf(`{"asset_id":%q,"employee_id":%q,"employee_name":"Stress Tester"}`, assetID, employeeID)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return assignResult{EmployeeID: employeeID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return assignResult{EmployeeID: employeeID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	_ = json.Unmarshal(raw, &parsed)
	msg, _ := parsed["message"].(string)
	if msg == "" {
		msg, _ = parsed["error"].(string)
	}

	return assignResult{
		EmployeeID: employeeID,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
