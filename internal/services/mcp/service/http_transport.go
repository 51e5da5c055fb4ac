package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/powderhound/powderhound/internal/platform/timeouts"
)

const (
	defaultHTTPAddr = "localhost:8094"
	// Sessions that stop sending requests are dropped after this long.
	sessionIdleTimeout = time.Hour
)

// HTTPTransport serves MCP over the streamable HTTP transport on /mcp, with a
// plain liveness probe on /mcp/health.
type HTTPTransport struct {
	addr   string
	guard  hostGuard
	server *mcp.Server
}

// NewHTTPTransport creates an HTTP transport for server. Only loopback hosts
// and allowedHosts may appear in Host or Origin.
func NewHTTPTransport(addr string, allowedHosts []string, server *mcp.Server) *HTTPTransport {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = defaultHTTPAddr
	}
	return &HTTPTransport{addr: addr, guard: newHostGuard(allowedHosts), server: server}
}

// Handler returns the guarded routes.
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return t.server },
		&mcp.StreamableHTTPOptions{SessionTimeout: sessionIdleTimeout},
	))
	mux.HandleFunc("GET /mcp/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	return t.guard.wrap(mux)
}

// Start serves until ctx ends and returns after in-flight requests drain or
// timeouts.Shutdown passes.
func (t *HTTPTransport) Start(ctx context.Context) error {
	if t == nil || t.server == nil {
		return errors.New("MCP server is not configured")
	}
	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", t.addr, err)
	}
	srv := &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: timeouts.GRPCRequest,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	drained := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		drained <- srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("MCP HTTP listening on %s", listener.Addr())
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve MCP HTTP: %w", err)
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("shutdown MCP HTTP: %w", err)
	}
	return nil
}

// hostGuard rejects requests whose Host or Origin is neither loopback nor
// allowed, which blocks DNS rebinding from remote pages.
type hostGuard struct {
	allowed map[string]bool
}

func newHostGuard(extra []string) hostGuard {
	g := hostGuard{allowed: map[string]bool{}}
	for _, host := range extra {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			g.allowed[host] = true
		}
	}
	return g
}

func (g hostGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.check(r); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g hostGuard) check(r *http.Request) error {
	if !g.allows(r.Host) {
		return fmt.Errorf("host %q is not allowed", r.Host)
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return nil
	}
	parsed, err := url.Parse(origin)
	if err != nil || !g.allows(parsed.Host) {
		return fmt.Errorf("origin %q is not allowed", origin)
	}
	return nil
}

func (g hostGuard) allows(hostport string) bool {
	host := strings.ToLower((&url.URL{Host: strings.TrimSpace(hostport)}).Hostname())
	switch {
	case host == "":
		return false
	case host == "localhost":
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return g.allowed[host]
}
