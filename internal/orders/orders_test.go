package orders_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orders"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orderspb"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

func newPlainService() *orders.Service {
	return orders.NewService(orders.NewStore(), nil, nil)
}

func TestCreateAndGetOrder(t *testing.T) {
	svc := newPlainService()
	srv := httptest.NewServer(svc.Router(secprofile.S0, nil))
	defer srv.Close()

	payload := `{"customerId":"cust-1","itemSkus":["sku-a"],"totalAmount":12.5}`
	resp, err := http.Post(srv.URL+"/api/orders", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created orders.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "cust-1", created.CustomerID)

	getResp, err := http.Get(srv.URL + "/api/orders/" + created.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestCreateOrderRequiresCustomerID(t *testing.T) {
	svc := newPlainService()
	srv := httptest.NewServer(svc.Router(secprofile.S0, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/orders", "application/json", bytes.NewBufferString(`{"itemSkus":["sku-a"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownOrderReturns404(t *testing.T) {
	svc := newPlainService()
	srv := httptest.NewServer(svc.Router(secprofile.S0, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orders/no-such-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthReportsOrderCount(t *testing.T) {
	svc := newPlainService()
	svc.Create("cust-1", nil, 0, "")
	srv := httptest.NewServer(svc.Router(secprofile.S1, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "S1", body["profile"])
	assert.Equal(t, float64(1), body["orders"])
}

func TestCreateFiresInventoryReservation(t *testing.T) {
	var (
		mu   sync.Mutex
		got  map[string]any
		auth string
		done = make(chan struct{})
	)
	inventory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
		close(done)
	}))
	defer inventory.Close()

	client := orders.NewInventoryClient(inventory.URL, nil, nil)
	svc := orders.NewService(orders.NewStore(), client, nil)

	order := svc.Create("cust-9", []string{"sku-x", "sku-y"}, 40, "Bearer forwarded-token")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reservation call never arrived")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, order.ID, got["orderId"])
	assert.Equal(t, "Bearer forwarded-token", auth)
}

func TestGRPCCreateGate(t *testing.T) {
	svc := newPlainService()

	t.Run("anonymous under S2 is unauthenticated", func(t *testing.T) {
		g := orders.NewGRPCServer(svc, secprofile.S2, nil)
		_, err := g.Create(context.Background(), &orderspb.OrderCreateRequest{CustomerID: "c"})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("wrong scope under S4 is permission denied", func(t *testing.T) {
		g := orders.NewGRPCServer(svc, secprofile.S4, nil)
		ctx := jwt.ContextWithClaims(context.Background(), &jwt.Claims{Scopes: []string{"orders.read"}})
		_, err := g.Create(ctx, &orderspb.OrderCreateRequest{CustomerID: "c"})
		require.Error(t, err)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("matching scope creates the order", func(t *testing.T) {
		g := orders.NewGRPCServer(svc, secprofile.S2, nil)
		ctx := jwt.ContextWithClaims(context.Background(), &jwt.Claims{Scopes: []string{"orders.write"}})
		resp, err := g.Create(ctx, &orderspb.OrderCreateRequest{CustomerID: "c", ItemSkus: []string{"sku"}})
		require.NoError(t, err)
		assert.True(t, resp.Accepted)
		assert.NotEmpty(t, resp.OrderID)
	})

	t.Run("missing customer id is invalid argument", func(t *testing.T) {
		g := orders.NewGRPCServer(svc, secprofile.S0, nil)
		_, err := g.Create(context.Background(), &orderspb.OrderCreateRequest{})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestGRPCRoundTripOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.ForceServerCodec(orderspb.Codec{}))
	orderspb.RegisterOrderServiceServer(server, orders.NewGRPCServer(newPlainService(), secprofile.S0, nil))

	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := orderspb.NewOrderServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Create(ctx, &orderspb.OrderCreateRequest{
		CustomerID:  "cust-grpc",
		ItemSkus:    []string{"sku-1"},
		TotalAmount: 9.99,
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	_, err = client.Create(ctx, &orderspb.OrderCreateRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
