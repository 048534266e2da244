package api_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jnfrati/fila/api"
	"github.com/jnfrati/fila/internal/server"
)

func TestStartReturnsBindError(t *testing.T) {
	// Occupy a port so the stats API cannot bind to it.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lis.Close()

	qs, err := server.New(server.Config{Host: "127.0.0.1", Capacity: 10})
	if err != nil {
		t.Fatal(err)
	}

	// The timeout is a safety net: if Start swallows the bind failure it
	// blocks until ctx is done and returns nil, failing the assertion.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := api.Start(ctx, lis.Addr().String(), qs); err == nil {
		t.Fatal("expected an error when the address is already bound")
	}
}
