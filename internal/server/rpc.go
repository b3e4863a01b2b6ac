package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/iForgotThePlusC/Wind-Turbines/internal/errors"
)

// JSON-RPC 2.0 protocol error codes
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

// rpcParams is the object carried as the first positional parameter of every
// layout method.
type rpcParams struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	CreateRequest
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var params rpcParams
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params[0], &params); err != nil {
			s.respondWithError(w, rpcInvalidParams, "invalid parameter format, expected object", request.ID)
			return
		}
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "layout.create":
		result, err = s.CreateLayout(params.CreateRequest)
	case "layout.list":
		result = map[string]interface{}{"layouts": s.ListLayouts()}
	case "layout.status":
		result, err = s.LayoutStatus(params.ID)
	case "layout.step":
		result, err = s.StepLayout(params.ID, params.Count)
	case "layout.configure":
		result, err = s.ConfigureLayout(params.ID, ConfigureRequest{
			Turbines:     params.Turbines,
			Delta:        params.Delta,
			LearningRate: params.LearningRate,
		})
	case "layout.randomize":
		result, err = s.RandomizeLayout(params.ID)
	case "layout.start":
		result, err = s.StartLayout(params.ID)
	case "layout.stop":
		result, err = s.StopLayout(params.ID)
	case "layout.delete":
		if err = s.DeleteLayout(params.ID); err == nil {
			result = map[string]string{"id": params.ID, "status": "deleted"}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.logger.Warn("RPC call failed", map[string]interface{}{
			"method": request.Method,
			"error":  err.Error(),
		})
		s.respondWithError(w, apperrors.RPCCode(err), err.Error(), request.ID)
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// respondWithError sends a JSON-RPC error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
