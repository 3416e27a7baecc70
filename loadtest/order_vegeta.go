package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/yunn234/yunn-shoppingmall/pkg/logger"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// loginResponse matches the /api/auth/login envelope
type loginResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

// orderResp captures success flag for post-run analysis
type orderResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   int    `json:"error"`
}

func main() {
	var (
		server      = flag.String("server", "http://localhost:8080", "API server base URL")
		productID   = flag.Int64("product", 1, "Product ID to add to cart before ordering")
		quantity    = flag.Int("quantity", 1, "Purchase quantity")
		users       = flag.Int("users", 50, "Number of virtual users (tokens) to prepare")
		rate        = flag.Int("rate", 100, "Requests per second")
		duration    = flag.String("duration", "30s", "Attack duration (e.g. 10s, 1m)")
		password    = flag.String("password", "password123", "Password used for all test users")
		register    = flag.Bool("register", false, "Register users before login (if they might not exist)")
		productList = flag.String("productList", "", "Comma separated product IDs (optional: random pick per request)")
		outJSON     = flag.String("out", "vegeta_results.json", "Summary JSON output file")
	)
	flag.Parse()

	attackDuration, err := time.ParseDuration(*duration)
	if err != nil {
		logger.Fatal("invalid duration", "err", err)
	}

	// Prepare users
	tokens := prepareTokens(*server, *users, *password, *register)
	if len(tokens) == 0 {
		logger.Fatal("no tokens prepared; aborting")
	}

	// Parse optional product list
	var productIDs []int64
	if *productList != "" {
		for _, part := range bytes.Split([]byte(*productList), []byte(",")) {
			var id int64
			_, err := fmt.Sscanf(string(bytes.TrimSpace(part)), "%d", &id)
			if err == nil && id > 0 {
				productIDs = append(productIDs, id)
			}
		}
	}
	rand.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 5 * time.Second}

	// Seed each virtual user's cart so the order endpoint has lines to settle
	for _, token := range tokens {
		pid := *productID
		if len(productIDs) > 0 {
			pid = productIDs[rand.Intn(len(productIDs))]
		}
		addBody := map[string]any{"product_id": pid, "quantity": *quantity}
		if err := postJSONAuth(client, fmt.Sprintf("%s/api/carts/items", *server), token, addBody, nil); err != nil {
			logger.Warn("seed cart failed", "err", err)
		}
	}

	// Custom targeter cycling through tokens
	var counter uint64
	targeter := func(t *vegeta.Target) error {
		idx := atomic.AddUint64(&counter, 1) - 1
		token := tokens[idx%uint64(len(tokens))]
		bodyMap := map[string]any{
			"shipping": map[string]any{
				"recipient_name":  "负载测试",
				"recipient_phone": "010-0000-0000",
				"address":         "测试地址",
			},
			"payment": map[string]any{
				"method": "card",
			},
		}
		b, _ := json.Marshal(bodyMap)
		t.Method = http.MethodPost
		t.URL = fmt.Sprintf("%s/api/orders", *server)
		t.Body = b
		t.Header = http.Header{}
		t.Header.Set("Content-Type", "application/json")
		t.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	attacker := vegeta.NewAttacker()
	var metrics vegeta.Metrics
	successLogical := uint64(0)
	totalLogical := uint64(0)

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, attackDuration, "order_test") {
		metrics.Add(res)
		atomic.AddUint64(&totalLogical, 1)
		// Check JSON success field
		var or orderResp
		if err := json.Unmarshal(res.Body, &or); err == nil {
			if or.Success {
				atomic.AddUint64(&successLogical, 1)
			}
		}
	}
	metrics.Close()

	logicalSuccessRatio := float64(successLogical) / float64(maxUint64(1, totalLogical))

	summary := map[string]any{
		"attack": map[string]any{
			"rate_rps": *rate,
			"duration": attackDuration.String(),
			"users":    *users,
		},
		"vegeta_metrics": map[string]any{
			"requests":           metrics.Requests,
			"rate":               metrics.Rate,
			"throughput":         metrics.Throughput,
			"success_ratio_http": metrics.Success,
			"latency_mean_ms":    metrics.Latencies.Mean.Seconds() * 1000,
			"latency_p95_ms":     metrics.Latencies.P95.Seconds() * 1000,
			"latency_p99_ms":     metrics.Latencies.P99.Seconds() * 1000,
			"errors":             metrics.Errors,
		},
		"logical_success_ratio": logicalSuccessRatio,
		"logical_success":       successLogical,
		"logical_total":         totalLogical,
		"timestamp":             time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(summary, "", "  ")
	if err := os.WriteFile(*outJSON, data, 0644); err != nil {
		logger.Warn("write summary failed", "err", err)
	}
	fmt.Println(string(data))
}

func prepareTokens(server string, users int, password string, doRegister bool) []string {
	tokens := make([]string, 0, users)
	client := &http.Client{Timeout: 5 * time.Second}
	for i := 0; i < users; i++ {
		email := fmt.Sprintf("lt_user_%d@example.com", i)
		if doRegister {
			regBody := map[string]any{
				"email":        email,
				"name":         fmt.Sprintf("负载用户%d", i),
				"password":     password,
				"phone_number": fmt.Sprintf("010-0014-%04d", i),
			}
			if err := postJSON(client, fmt.Sprintf("%s/api/auth/register", server), regBody, nil); err != nil {
				logger.Warn("register failed", "email", email, "err", err)
			}
		}
		var lr loginResponse
		loginBody := map[string]string{"email": email, "password": password}
		err := postJSON(client, fmt.Sprintf("%s/api/auth/login", server), loginBody, &lr)
		if err != nil || lr.Data.Token == "" {
			logger.Warn("login failed", "email", email, "err", err)
			continue
		}
		tokens = append(tokens, lr.Data.Token)
	}
	return tokens
}

func postJSON(client *http.Client, url string, payload any, out any) error {
	return doJSON(client, url, "", payload, out)
}

func postJSONAuth(client *http.Client, url, token string, payload any, out any) error {
	return doJSON(client, url, token, payload, out)
}

func doJSON(client *http.Client, url, token string, payload any, out any) error {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d body %s", resp.StatusCode, string(body))
	}
	if out != nil {
		_ = json.Unmarshal(body, out)
	}
	return nil
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
