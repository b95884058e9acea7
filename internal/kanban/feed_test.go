package kanban

import (
	"context"
	"menu-service/internal/changefeed"
	"menu-service/internal/models"
	"menu-service/internal/realtime"
	"menu-service/internal/transport/http/ws"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFeed_DrivenByConnectionManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(nil, zap.NewNop())
	go hub.Run(ctx)
	r := gin.New()
	r.GET("/api/v1/ws/orders", hub.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	events := make(chan changefeed.Event, 4)
	feed := NewFeed("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/orders", func(ev changefeed.Event) { events <- ev }, zap.NewNop())

	ready := make(chan struct{}, 4)
	m := realtime.NewConnectionManager(feed, realtime.ConnectionConfig{
		OnReady: func() { ready <- struct{}{} },
	}, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("feed never became ready")
	}
	assert.Equal(t, realtime.StateSubscribed, m.State())

	o := &models.Order{ID: uuid.New(), Status: models.OrderStatusReady}
	hub.PublishChange(changefeed.Event{Op: changefeed.OpUpdate, Table: "orders", New: o})
	select {
	case ev := <-events:
		assert.Equal(t, o.ID, ev.New.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event relayed")
	}

	m.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}
