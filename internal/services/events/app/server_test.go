package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	platformgrpc "github.com/powderhound/powderhound/internal/platform/grpc"
	"github.com/powderhound/powderhound/internal/platform/timeouts"
	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
	eventsmetadata "github.com/powderhound/powderhound/internal/services/events/api/grpc/metadata"
)

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Addr: "127.0.0.1:0", DBPath: filepath.Join(t.TempDir(), "events.db"), Timezone: "Mars/Olympus"})
	if err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestNewRejectsPartialIdentityConfig(t *testing.T) {
	_, err := New(Config{
		Addr:              "127.0.0.1:0",
		DBPath:            filepath.Join(t.TempDir(), "events.db"),
		IdentityPublicKey: "c29tZS1rZXk",
	})
	if err == nil {
		t.Fatal("expected error for identity key without issuer")
	}
}

func TestNewRequiresDBPath(t *testing.T) {
	if _, err := New(Config{Addr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error for blank db path")
	}
}

func TestServeAnswersCallsUntilCancelled(t *testing.T) {
	now := time.Date(2026, time.January, 1, 15, 0, 0, 0, time.UTC)
	server, err := New(Config{
		Addr:     "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "nested", "events.db"),
		Timezone: "America/Denver",
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if server.Addr() == "" {
		t.Fatal("expected listener address")
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()

	conn, err := platformgrpc.Connect(context.Background(), platformgrpc.ConnectConfig{
		Addr:          server.Addr(),
		HealthService: eventsservice.ServiceName,
		Timeout:       timeouts.GRPCDial,
		Logf:          t.Logf,
	})
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := eventsservice.NewClient(conn)

	callCtx := eventsmetadata.OutgoingContext(context.Background(), "owner", "", "")
	created, err := client.CreateEvent(callCtx, &eventsservice.CreateEventRequest{
		Attributes: eventsservice.EventAttributes{Title: "Arapahoe Basin"},
		Date:       "2026-01-03",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if created.Event.OwnerID != "owner" {
		t.Fatalf("owner = %q, want owner", created.Event.OwnerID)
	}

	// 2025-12-31 is already past in Denver.
	_, err = client.CreateEvent(callCtx, &eventsservice.CreateEventRequest{
		Attributes: eventsservice.EventAttributes{Title: "Too late"},
		Date:       "2025-12-31",
	})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("past date code = %v, want FailedPrecondition", status.Code(err))
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAddrOnNilServer(t *testing.T) {
	var server *Server
	if server.Addr() != "" {
		t.Fatal("expected empty address for nil server")
	}
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("expected error serving nil server")
	}
}
