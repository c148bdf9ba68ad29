package trade_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/store"
	"github.com/stockpulse/portfolio-engine/internal/trade"
)

func TestWSHub_BroadcastsExecutedTrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := trade.NewWSHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	prices := &fakePrices{prices: map[string]decimal.Decimal{"AAPL": d(190)}}
	svc := trade.NewService(store.NewMemoryStore(), prices, hub, nil)
	order, err := svc.PlaceOrder(ctx, "u1", "AAPL", model.SideBuy, 2)
	if err != nil {
		t.Fatalf("order: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg trade.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "trade_executed" || msg.Symbol != "AAPL" || msg.Quantity != 2 || msg.OrderID != order.ID {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Price != "190" {
		t.Errorf("expected price 190, got %q", msg.Price)
	}
}
