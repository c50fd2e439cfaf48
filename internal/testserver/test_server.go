package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/plantrack/internal/auth"
	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/holiday"
	"github.com/rpggio/plantrack/internal/mcp"
	"github.com/rpggio/plantrack/internal/persist"
	"github.com/rpggio/plantrack/internal/sqlite"
	"github.com/rpggio/plantrack/internal/transport"
	"github.com/stretchr/testify/require"
)

// Secret signs the tokens minted by Token.
const Secret = "test-secret"

// TestServer is a fully wired HTTP server backed by in-memory SQLite.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Projects *project.Service
	Changes  *changelog.Service
	Holidays *holiday.Book
}

// New starts a server whose MCP endpoint requires a bearer token.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	ctx := context.Background()
	changes := changelog.NewService(sqlite.NewChangeRepository(db), nil)
	gateway := persist.NewGateway(sqlite.NewKVRepository(db), nil)
	store, err := project.LoadStore(ctx, gateway)
	require.NoError(t, err)
	projects := project.NewService(store, gateway, nil, project.WithChangeRecorder(changes))

	book := holiday.NewBook()
	authCfg := auth.Config{Secret: Secret}
	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Projects: projects,
			Backups:  backup.NewService(projects, nil, nil),
			Changes:  changes,
			Holidays: book,
		},
		Auth:          authCfg,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return server }, nil)
	router := transport.NewRouter(transport.Routes{MCP: mcpHandler}, transport.AuthMiddleware(authCfg), nil)

	ts := &TestServer{
		Server:   httptest.NewServer(router),
		DB:       db,
		Projects: projects,
		Changes:  changes,
		Holidays: book,
	}

	t.Cleanup(func() {
		ts.Server.Close()
		_ = db.Close()
	})

	return ts
}

// Token mints a bearer token for subject valid for one hour.
func (ts *TestServer) Token(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(Secret))
	require.NoError(t, err)
	return token
}

// Connect opens an MCP client session authenticated as subject.
func (ts *TestServer) Connect(t *testing.T, subject string) *sdkmcp.ClientSession {
	t.Helper()
	httpClient := &http.Client{Transport: bearerTransport{token: ts.Token(t, subject), base: http.DefaultTransport}}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: httpClient,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(r)
}
