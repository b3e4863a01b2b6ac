package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func rpcCall(t *testing.T, h http.Handler, body string) rpcResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "JSON-RPC errors are carried in the body")

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func rpcMethod(t *testing.T, h http.Handler, method string, params map[string]interface{}) rpcResponse {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	})
	require.NoError(t, err)
	return rpcCall(t, h, string(body))
}

func TestJSONRPCProtocolErrors(t *testing.T) {
	_, h := testServer(t, testConfig(t))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, -32700},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"layout.list"}`, -32600},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, -32600},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"layout.explode"}`, -32601},
		{"params not an object", `{"jsonrpc":"2.0","id":1,"method":"layout.status","params":[42]}`, -32602},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, h, tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestJSONRPCLayoutMethods(t *testing.T) {
	_, h := testServer(t, testConfig(t))

	resp := rpcMethod(t, h, "layout.create", map[string]interface{}{"turbines": 3, "seed": 5})
	require.Nil(t, resp.Error)
	assert.EqualValues(t, 1, resp.ID)

	var created LayoutState
	require.NoError(t, json.Unmarshal(resp.Result, &created))
	assert.Equal(t, 3, created.Turbines)
	id := created.ID

	resp = rpcMethod(t, h, "layout.step", map[string]interface{}{"id": id, "count": 4})
	require.Nil(t, resp.Error)
	var stepped LayoutState
	require.NoError(t, json.Unmarshal(resp.Result, &stepped))
	assert.Equal(t, 4, stepped.Steps)

	resp = rpcMethod(t, h, "layout.configure", map[string]interface{}{"id": id, "learning_rate": 30})
	require.Nil(t, resp.Error)
	var configured LayoutState
	require.NoError(t, json.Unmarshal(resp.Result, &configured))
	assert.Equal(t, 30.0, configured.LearningRate)

	resp = rpcMethod(t, h, "layout.randomize", map[string]interface{}{"id": id})
	require.Nil(t, resp.Error)

	resp = rpcMethod(t, h, "layout.list", nil)
	require.Nil(t, resp.Error)
	var list struct {
		Layouts []string `json:"layouts"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	assert.Equal(t, []string{id}, list.Layouts)

	resp = rpcMethod(t, h, "layout.start", map[string]interface{}{"id": id})
	require.Nil(t, resp.Error)
	resp = rpcMethod(t, h, "layout.stop", map[string]interface{}{"id": id})
	require.Nil(t, resp.Error)
	var stopped LayoutState
	require.NoError(t, json.Unmarshal(resp.Result, &stopped))
	assert.Equal(t, StatusIdle, stopped.Status)

	resp = rpcMethod(t, h, "layout.status", map[string]interface{}{"id": id})
	require.Nil(t, resp.Error)

	resp = rpcMethod(t, h, "layout.delete", map[string]interface{}{"id": id})
	require.Nil(t, resp.Error)

	resp = rpcMethod(t, h, "layout.status", map[string]interface{}{"id": id})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32004, resp.Error.Code)
}

func TestJSONRPCErrorCodes(t *testing.T) {
	_, h := testServer(t, testConfig(t))

	resp := rpcMethod(t, h, "layout.create", nil)
	require.Nil(t, resp.Error)
	var created LayoutState
	require.NoError(t, json.Unmarshal(resp.Result, &created))

	tests := []struct {
		name   string
		method string
		params map[string]interface{}
		code   int
	}{
		{"invalid delta", "layout.configure", map[string]interface{}{"id": created.ID, "delta": -1}, -32602},
		{"too many steps", "layout.step", map[string]interface{}{"id": created.ID, "count": 1000}, -32602},
		{"missing layout", "layout.step", map[string]interface{}{"id": "nope"}, -32004},
		{"stop idle layout", "layout.stop", map[string]interface{}{"id": created.ID}, -32009},
		{"delete missing layout", "layout.delete", map[string]interface{}{"id": "nope"}, -32004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcMethod(t, h, tt.method, tt.params)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

// gather returns the metric families in reg keyed by name.
func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(testConfig(t), testLogger(t), WithRegisterer(reg))
	t.Cleanup(func() { _ = srv.Close() })
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	a := createLayout(t, r, map[string]interface{}{"turbines": 2})
	createLayout(t, r, map[string]interface{}{"turbines": 2})

	_, err := srv.StepLayout(a.ID, 3)
	require.NoError(t, err)

	mfs := gather(t, reg)
	assert.Equal(t, 2.0, mfs["turbines_sessions_active"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 3.0, mfs["turbines_steps_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, uint64(3), mfs["turbines_step_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())

	power := mfs["turbines_layout_power"].GetMetric()
	require.Len(t, power, 1)
	assert.Equal(t, a.ID, power[0].GetLabel()[0].GetValue())
	assert.Greater(t, power[0].GetGauge().GetValue(), 0.0)

	require.NoError(t, srv.DeleteLayout(a.ID))

	mfs = gather(t, reg)
	assert.Equal(t, 1.0, mfs["turbines_sessions_active"].GetMetric()[0].GetGauge().GetValue())
	assert.NotContains(t, mfs, "turbines_layout_power", "deleted sessions drop their power series")
}
