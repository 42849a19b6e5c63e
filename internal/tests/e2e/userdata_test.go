//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/vlearn/apiserver/config"
	"github.com/vlearn/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestInteractionStateLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("learner_%d", time.Now().UnixNano())
	password := "testpass123!"

	token, err := registerUser(t, baseURL, username, password)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	if err := mutateItem(t, baseURL, token, http.MethodPut, "bookmarks", 1); err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	if err := mutateItem(t, baseURL, token, http.MethodPut, "bookmarks", 1); err != nil {
		t.Fatalf("re-add bookmark: %v", err)
	}
	if err := mutateItem(t, baseURL, token, http.MethodPut, "todo", 2); err != nil {
		t.Fatalf("add todo: %v", err)
	}

	data, err := getUserData(t, baseURL, token)
	if err != nil {
		t.Fatalf("get user data: %v", err)
	}
	if len(data.Bookmarks) != 1 || data.Bookmarks[0] != 1 {
		t.Fatalf("bookmarks = %v, want [1]", data.Bookmarks)
	}
	if len(data.Todo) != 1 || data.Todo[0] != 2 {
		t.Fatalf("todo = %v, want [2]", data.Todo)
	}

	// Completing a queued item must empty the todo list in the same call.
	if err := mutateItem(t, baseURL, token, http.MethodPut, "completed", 2); err != nil {
		t.Fatalf("complete item: %v", err)
	}
	data, err = getUserData(t, baseURL, token)
	if err != nil {
		t.Fatalf("get user data: %v", err)
	}
	if len(data.Completed) != 1 || data.Completed[0] != 2 {
		t.Fatalf("completed = %v, want [2]", data.Completed)
	}
	if len(data.Todo) != 0 {
		t.Fatalf("todo = %v, want empty after completion", data.Todo)
	}

	if err := mutateItem(t, baseURL, token, http.MethodDelete, "bookmarks", 1); err != nil {
		t.Fatalf("remove bookmark: %v", err)
	}
	data, err = getUserData(t, baseURL, token)
	if err != nil {
		t.Fatalf("get user data: %v", err)
	}
	if len(data.Bookmarks) != 0 {
		t.Fatalf("bookmarks = %v, want empty", data.Bookmarks)
	}
}

func TestAnonymousSentinelState(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	if err := mutateItem(t, baseURL, "", http.MethodPut, "bookmarks", 5); err != nil {
		t.Fatalf("anonymous bookmark: %v", err)
	}

	data, err := getUserData(t, baseURL, "")
	if err != nil {
		t.Fatalf("get anonymous data: %v", err)
	}
	if data.UserKey != "default_user" {
		t.Fatalf("anonymous user key = %q, want default_user", data.UserKey)
	}
	found := false
	for _, id := range data.Bookmarks {
		if id == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("anonymous bookmarks = %v, want to contain 5", data.Bookmarks)
	}
}

func TestDefaultAdminAndCatalogSeed(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	token, err := loginUser(t, baseURL, "admin", "admin123")
	if err != nil {
		t.Fatalf("login default admin: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/docs", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list docs status = %d", resp.StatusCode)
	}
	var links []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		t.Fatalf("decode docs: %v", err)
	}
	if len(links) == 0 {
		t.Fatalf("expected seeded documentation links")
	}

	// Admin can reset an arbitrary user's interaction state.
	username := fmt.Sprintf("resettee_%d", time.Now().UnixNano())
	userToken, err := registerUser(t, baseURL, username, "testpass123!")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	if err := mutateItem(t, baseURL, userToken, http.MethodPut, "todo", 1); err != nil {
		t.Fatalf("add todo: %v", err)
	}

	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/admin/users/%s/data", baseURL, username), nil)
	if err != nil {
		t.Fatalf("build reset request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resetResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("reset user data: %v", err)
	}
	defer resetResp.Body.Close()
	if resetResp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resetResp.Body)
		t.Fatalf("reset status = %d: %s", resetResp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := getUserData(t, baseURL, userToken)
	if err != nil {
		t.Fatalf("get user data: %v", err)
	}
	if len(data.Todo) != 0 {
		t.Fatalf("todo = %v, want empty after admin reset", data.Todo)
	}
}

type userDataResponse struct {
	UserKey   string `json:"user_key"`
	Bookmarks []int  `json:"bookmarks"`
	Completed []int  `json:"completed"`
	Todo      []int  `json:"todo"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username":  username,
		"email":     fmt.Sprintf("%s@example.com", username),
		"full_name": "Test Learner",
		"password":  password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func loginUser(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{"username": username, "password": password}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Token, nil
}

func mutateItem(t *testing.T, baseURL, token, method, list string, itemID int) error {
	t.Helper()

	url := fmt.Sprintf("%s/me/%s/%d", baseURL, list, itemID)
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func getUserData(t *testing.T, baseURL, token string) (userDataResponse, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/me/data", nil)
	if err != nil {
		return userDataResponse{}, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return userDataResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return userDataResponse{}, fmt.Errorf("get data status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed userDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return userDataResponse{}, err
	}
	return parsed, nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := postgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := postgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func postgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "vlearn")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "vlearn_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "none")
	_ = os.Setenv("MQ_BACKEND", "none")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
