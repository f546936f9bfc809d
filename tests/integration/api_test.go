package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	httpHandler "wallet-service/internal/adapter/http/handler"
	redisStorage "wallet-service/internal/adapter/storage/redis"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/service"
	"wallet-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack over in-memory storage: real HTTP
// layer, middleware, handlers, and service wired to the in-memory repos and a
// miniredis-backed balance cache.

type testApp struct {
	server *httptest.Server
	store  *memStore
	redis  *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithTimeout(t, 5*time.Second)
}

func newTestAppWithTimeout(t *testing.T, opTimeout time.Duration) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := newMemStore()
	walletRepo := newInMemoryWalletRepo(store)
	txRepo := newInMemoryTransactionRepo(store)
	transactor := newInMemoryTransactor(store)
	balanceCache := redisStorage.NewBalanceCache(rdb)

	log := logger.New("error", false)
	walletSvc := service.NewWalletService(
		walletRepo, txRepo, transactor, balanceCache,
		opTimeout, time.Second, log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)
	return &testApp{server: server, store: store, redis: mr}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
}

func (a *testApp) post(t *testing.T, path string, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(a.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *testApp) get(t *testing.T, path string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *testApp) createWallet(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	status, _ := a.post(t, "/api/v1/wallets", fmt.Sprintf(`{"walletId":%q}`, id))
	require.Equal(t, http.StatusCreated, status)
	return id
}

func (a *testApp) operate(t *testing.T, walletID uuid.UUID, opType, amount string) (int, envelope) {
	t.Helper()
	body := fmt.Sprintf(`{"walletId":%q,"operationType":%q,"amount":%q}`, walletID, opType, amount)
	return a.post(t, "/api/v1/wallet", body)
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_DepositThenWithdraw(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	status, env := app.operate(t, walletID, "DEPOSIT", "100.00")
	require.Equal(t, http.StatusOK, status)
	var opResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opResp))
	assert.Equal(t, "100", opResp.Balance)

	status, env = app.operate(t, walletID, "WITHDRAW", "40.00")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &opResp))
	assert.Equal(t, "60", opResp.Balance)

	// Balance query agrees.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	var balResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balResp))
	assert.Equal(t, "60", balResp.Balance)

	// Both operations are on the log, newest first, with a consistent
	// before/after chain.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String()+"/transactions")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []struct {
			OperationType string `json:"operationType"`
			BalanceBefore string `json:"balanceBefore"`
			BalanceAfter  string `json:"balanceAfter"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, int64(2), list.Total)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "WITHDRAW", list.Items[0].OperationType)
	assert.Equal(t, "100", list.Items[0].BalanceBefore)
	assert.Equal(t, "60", list.Items[0].BalanceAfter)
	assert.Equal(t, "DEPOSIT", list.Items[1].OperationType)
	assert.Equal(t, "0", list.Items[1].BalanceBefore)
	assert.Equal(t, "100", list.Items[1].BalanceAfter)
}

func TestIntegration_WithdrawFromEmptyWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	status, env := app.operate(t, walletID, "WITHDRAW", "10.00")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "WAL_003", env.ErrorCode)

	// A rejected withdrawal leaves no trace on the log.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String()+"/transactions")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(0), list.Total)

	// And the balance is untouched.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	var balResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balResp))
	assert.Equal(t, "0", balResp.Balance)
}

func TestIntegration_UnknownWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	status, env := app.operate(t, uuid.New(), "DEPOSIT", "10.00")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "WAL_002", env.ErrorCode)

	status, env = app.get(t, "/api/v1/wallets/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "WAL_002", env.ErrorCode)
}

func TestIntegration_DuplicateWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)
	status, _ := app.operate(t, walletID, "DEPOSIT", "30.00")
	require.Equal(t, http.StatusOK, status)

	status, env := app.post(t, "/api/v1/wallets", fmt.Sprintf(`{"walletId":%q}`, walletID))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "WAL_004", env.ErrorCode)

	// The existing wallet was not reset.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	var balResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balResp))
	assert.Equal(t, "30", balResp.Balance)
}

func TestIntegration_InvalidPayloads(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"walletId":`},
		{"bad operation type", fmt.Sprintf(`{"walletId":%q,"operationType":"TRANSFER","amount":"10.00"}`, walletID)},
		{"zero amount", fmt.Sprintf(`{"walletId":%q,"operationType":"DEPOSIT","amount":"0"}`, walletID)},
		{"negative amount", fmt.Sprintf(`{"walletId":%q,"operationType":"DEPOSIT","amount":"-5.00"}`, walletID)},
		{"sub-cent amount", fmt.Sprintf(`{"walletId":%q,"operationType":"DEPOSIT","amount":"0.001"}`, walletID)},
		{"bad uuid", `{"walletId":"abc","operationType":"DEPOSIT","amount":"10.00"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(app.server.URL+"/api/v1/wallet", "application/json", bytes.NewBufferString(tc.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	// Nothing above reached the log.
	status, env := app.get(t, "/api/v1/wallets/"+walletID.String()+"/transactions")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(0), list.Total)
}

func TestIntegration_CaseInsensitiveOperationType(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	status, _ := app.operate(t, walletID, "deposit", "25.00")
	assert.Equal(t, http.StatusOK, status)

	status, _ = app.operate(t, walletID, "Withdraw", "5.00")
	assert.Equal(t, http.StatusOK, status)
}

func TestIntegration_TransactionPagination(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)
	for i := 0; i < 5; i++ {
		status, _ := app.operate(t, walletID, "DEPOSIT", "1.00")
		require.Equal(t, http.StatusOK, status)
	}

	status, env := app.get(t, "/api/v1/wallets/"+walletID.String()+"/transactions?page=2&page_size=2")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items    []json.RawMessage `json:"items"`
		Total    int64             `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(5), list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Len(t, list.Items, 2)

	// Most-recent-N mode.
	status, env = app.get(t, "/api/v1/wallets/"+walletID.String()+"/transactions?limit=3")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(5), list.Total)
	assert.Len(t, list.Items, 3)
}

func TestIntegration_MutationDropsCachedBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	status, _ := app.operate(t, walletID, "DEPOSIT", "50.00")
	require.Equal(t, http.StatusOK, status)

	// Prime the cache with the current balance.
	status, _ = app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	require.True(t, app.redis.Exists("balance:"+walletID.String()))

	// A mutation invalidates the primed entry rather than racing other
	// committers to overwrite it.
	status, _ = app.operate(t, walletID, "DEPOSIT", "25.00")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, app.redis.Exists("balance:"+walletID.String()))

	status, env := app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	var balResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balResp))
	assert.Equal(t, "75", balResp.Balance)
}

func TestIntegration_ConcurrentMutationsNeverServeStaleBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	walletID := app.createWallet(t)

	const deposits = 40
	var wg sync.WaitGroup
	for i := 0; i < deposits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := app.operate(t, walletID, "DEPOSIT", "10.00")
			assert.Equal(t, http.StatusOK, status)
		}()
	}
	wg.Wait()

	// The read path must reflect every committed deposit immediately; a
	// cache entry written out of order would be off by some multiple of 10.
	status, env := app.get(t, "/api/v1/wallets/"+walletID.String())
	require.Equal(t, http.StatusOK, status)
	var balResp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balResp))
	assert.Equal(t, "400", balResp.Balance)
}
