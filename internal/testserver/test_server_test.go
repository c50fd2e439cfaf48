package testserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/plantrack/internal/mcp"
	"github.com/rpggio/plantrack/internal/persist"
	"github.com/rpggio/plantrack/internal/sqlite"
	"github.com/rpggio/plantrack/internal/testserver"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed", name)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
}

func TestHTTP_RejectsMissingToken(t *testing.T) {
	ts := testserver.New(t)

	resp, err := http.Post(ts.Server.URL+"/mcp", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_ProjectLifecyclePersists(t *testing.T) {
	ts := testserver.New(t)
	cs := ts.Connect(t, "pm-1")

	initResult := cs.InitializeResult()
	require.NotNil(t, initResult)
	require.Equal(t, "plantrack", initResult.ServerInfo.Name)

	var created struct {
		ID string `json:"id"`
	}
	callTool(t, cs, "create_project", nil, &created)
	require.NotEmpty(t, created.ID)

	var summaries []mcp.ProjectSummaryResponse
	callTool(t, cs, "list_projects", nil, &summaries)
	require.Len(t, summaries, 1)
	require.Equal(t, created.ID, string(summaries[0].ID))

	gateway := persist.NewGateway(sqlite.NewKVRepository(ts.DB), nil)
	stored, err := gateway.LoadProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	var changes []mcp.ChangeEntryResponse
	callTool(t, cs, "recent_changes", nil, &changes)
	require.NotEmpty(t, changes)
	require.Equal(t, created.ID, changes[0].ProjectID)
}
