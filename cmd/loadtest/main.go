// Command loadtest exercises the confirmation path under concurrency: it
// places N single-item orders for one product and confirms them all at
// once, then checks that stock never went negative and that confirming an
// order twice does not decrement twice.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result records one HTTP outcome for aggregation.
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	email := flag.String("email", "admin@searajoias.local", "admin email")
	password := flag.String("password", "", "admin password")
	stock := flag.Int64("stock", 5, "initial stock for the test product")
	nOrders := flag.Int("orders", 20, "orders to place and confirm")
	concurrency := flag.Int("c", 10, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	token, err := login(client, *baseURL, *email, *password)
	if err != nil {
		panic(fmt.Sprintf("login failed: %v", err))
	}

	productID, err := createProduct(client, *baseURL, token, *stock)
	if err != nil {
		panic(fmt.Sprintf("create product failed: %v", err))
	}
	fmt.Println("test product:", productID)

	orderIDs := make([]string, 0, *nOrders)
	for i := 0; i < *nOrders; i++ {
		id, err := placeOrder(client, *baseURL, productID, i)
		if err != nil {
			panic(fmt.Sprintf("place order %d failed: %v", i, err))
		}
		orderIDs = append(orderIDs, id)
	}

	fmt.Printf("start oversell test: product=%s orders=%d concurrency=%d\n",
		productID, *nOrders, *concurrency)
	results := confirmAll(client, *baseURL, token, orderIDs, *concurrency)
	printSummary("oversell", results)

	final, err := getStock(client, *baseURL, productID)
	if err != nil {
		fmt.Println("stock check err:", err)
	} else {
		fmt.Printf("final stock: %d (started at %d, confirmed %d)\n", final, *stock, *nOrders)
		if final < 0 {
			fmt.Println("FAIL: stock went negative")
		}
	}

	// Idempotency: re-confirm every order, stock must not move again.
	results2 := confirmAll(client, *baseURL, token, orderIDs, *concurrency)
	printSummary("reconfirm", results2)
	again, err := getStock(client, *baseURL, productID)
	if err == nil {
		if again != final {
			fmt.Printf("FAIL: stock moved on re-confirm (%d -> %d)\n", final, again)
		} else {
			fmt.Println("re-confirm is a no-op, stock unchanged")
		}
	}
}

func confirmAll(client *http.Client, baseURL, token string, orderIDs []string, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(orderIDs))

	for i, id := range orderIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, orderID string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = doJSON(client, http.MethodPost,
				fmt.Sprintf("%s/api/orders/%s/confirm", baseURL, orderID), nil, token)
		}(i, id)
	}

	wg.Wait()
	return results
}

func login(client *http.Client, baseURL, email, password string) (string, error) {
	res := doJSON(client, http.MethodPost, baseURL+"/api/auth/login",
		map[string]string{"email": email, "password": password}, "")
	if res.Err != nil {
		return "", res.Err
	}
	if res.Status != http.StatusOK {
		return "", fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func createProduct(client *http.Client, baseURL, token string, stock int64) (string, error) {
	res := doJSON(client, http.MethodPost, baseURL+"/api/products", map[string]any{
		"name":           "loadtest ring",
		"category":       "aneis",
		"original_price": 19900,
		"current_price":  14900,
		"stock":          stock,
	}, token)
	if res.Err != nil {
		return "", res.Err
	}
	if res.Status != http.StatusCreated {
		return "", fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func placeOrder(client *http.Client, baseURL, productID string, n int) (string, error) {
	res := doJSON(client, http.MethodPost, baseURL+"/api/orders", map[string]any{
		"customer":        fmt.Sprintf("Cliente %d", n),
		"payment_method":  "pix",
		"delivery_method": "pickup",
		"items": []map[string]any{
			{"product_id": productID, "name": "loadtest ring", "unit_price": 14900, "quantity": 1},
		},
	}, "")
	if res.Err != nil {
		return "", res.Err
	}
	if res.Status != http.StatusCreated {
		return "", fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var out struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", err
	}
	return out.Order.ID, nil
}

func getStock(client *http.Client, baseURL, productID string) (int64, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/products/%s/stock", baseURL, productID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	var out struct {
		Stock int64 `json:"stock"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Stock, nil
}

func doJSON(client *http.Client, method, url string, body any, token string) Result {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(b)}
}

func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 201, 400, 401, 404, 409, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
