package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
	"github.com/finscale/hierarchy-engine/pkg/services"

	_ "github.com/finscale/hierarchy-engine/pkg/dialect/mysql"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/postgres"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/snowflake"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/sqlserver"
)

// stubEngineService serves canned engine results for handler tests.
type stubEngineService struct {
	order      *services.EvaluationOrder
	expression string
	bundle     *services.ScriptBundle
	err        error
}

func (s *stubEngineService) ResolveEvaluationOrder(ctx context.Context, projectID uuid.UUID) (*services.EvaluationOrder, error) {
	return s.order, s.err
}

func (s *stubEngineService) CompileNode(ctx context.Context, projectID uuid.UUID, hierarchyID, dialectName string) (string, error) {
	return s.expression, s.err
}

func (s *stubEngineService) GenerateScripts(ctx context.Context, projectID uuid.UUID, req *services.GenerateScriptsRequest) (*services.ScriptBundle, error) {
	return s.bundle, s.err
}

func newEngineTestServer(svc *stubEngineService) *httptest.Server {
	mux := http.NewServeMux()
	NewEngineHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestEngineHandlerListDialects(t *testing.T) {
	server := newEngineTestServer(&stubEngineService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/dialects")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data DialectListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, 4, envelope.Data.Total)
	assert.Equal(t, "mysql", envelope.Data.Dialects[0].Name)
}

func TestEngineHandlerEvaluationOrder(t *testing.T) {
	svc := &stubEngineService{
		order: &services.EvaluationOrder{
			Order: []string{"GROSS_PROFIT", "NET_MARGIN"},
			Ranks: map[string]int{"GROSS_PROFIT": 1, "NET_MARGIN": 2},
		},
	}
	server := newEngineTestServer(svc)
	defer server.Close()

	projectID := uuid.New()
	resp, err := http.Get(server.URL + "/api/projects/" + projectID.String() + "/evaluation-order")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngineHandlerCycleConflict(t *testing.T) {
	svc := &stubEngineService{
		err: &apperrors.CircularDependencyError{Cycle: []string{"A", "B"}},
	}
	server := newEngineTestServer(svc)
	defer server.Close()

	projectID := uuid.New()
	resp, err := http.Get(server.URL + "/api/projects/" + projectID.String() + "/evaluation-order")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEngineHandlerCompileNode(t *testing.T) {
	svc := &stubEngineService{expression: "SELECT 1"}
	server := newEngineTestServer(svc)
	defer server.Close()

	projectID := uuid.New()
	resp, err := http.Post(
		server.URL+"/api/projects/"+projectID.String()+"/hierarchies/NET_MARGIN/compile",
		"application/json",
		strings.NewReader(`{"dialect":"snowflake"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data CompileNodeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "NET_MARGIN", envelope.Data.HierarchyID)
	assert.Equal(t, "snowflake", envelope.Data.Dialect)
	assert.Equal(t, "SELECT 1", envelope.Data.Expression)
}

func TestEngineHandlerUnknownDialect(t *testing.T) {
	svc := &stubEngineService{err: apperrors.ErrUnknownDialect}
	server := newEngineTestServer(svc)
	defer server.Close()

	projectID := uuid.New()
	resp, err := http.Post(
		server.URL+"/api/projects/"+projectID.String()+"/hierarchies/NET_MARGIN/compile",
		"application/json",
		strings.NewReader(`{"dialect":"oracle"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEngineHandlerGenerateScripts(t *testing.T) {
	svc := &stubEngineService{
		bundle: &services.ScriptBundle{
			Scripts: map[models.ArtifactKind]string{
				models.ArtifactView: `CREATE OR REPLACE VIEW "hierarchy_master" AS SELECT 1;`,
			},
		},
	}
	server := newEngineTestServer(svc)
	defer server.Close()

	projectID := uuid.New()
	resp, err := http.Post(
		server.URL+"/api/projects/"+projectID.String()+"/scripts",
		"application/json",
		strings.NewReader(`{"dialect":"postgres","kinds":["view"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data services.ScriptBundle `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Contains(t, envelope.Data.Scripts, models.ArtifactView)
}
