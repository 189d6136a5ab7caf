package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// newRPCServer answers every JSON-RPC call with result, or with an RPC error
// if rpcErr is set. Requests are sent to the returned channel.
func newRPCServer(t *testing.T, result string, rpcErr string) (*httptest.Server, <-chan rpcRequest) {
	t.Helper()
	requests := make(chan rpcRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case requests <- req:
		default:
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != "" {
			resp["error"] = map[string]interface{}{"code": -32602, "message": rpcErr}
		} else {
			resp["result"] = json.RawMessage(result)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestRealRPCClient_GetTransaction(t *testing.T) {
	srv, requests := newRPCServer(t, parsedTransactionJSON, "")
	client := NewRPCClient(srv.URL)

	sig := solana.MustSignatureFromBase58(testSignature)
	raw, err := client.GetTransaction(context.Background(), sig, GetTransactionConfig{
		Encoding:                       solana.EncodingJSONParsed,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: pointer.ToUint64(0),
	})
	require.NoError(t, err)

	rec, err := DecodeTransaction(testSignature, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(250000000), rec.Slot)

	req := <-requests
	assert.Equal(t, "getTransaction", req.Method)
	require.Len(t, req.Params, 2)

	var gotSig string
	require.NoError(t, json.Unmarshal(req.Params[0], &gotSig))
	assert.Equal(t, testSignature, gotSig)

	var gotConfig map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Params[1], &gotConfig))
	assert.Equal(t, "jsonParsed", gotConfig["encoding"])
	assert.Equal(t, "finalized", gotConfig["commitment"])
	assert.Equal(t, float64(0), gotConfig["maxSupportedTransactionVersion"])
}

func TestRealRPCClient_NullResult(t *testing.T) {
	srv, _ := newRPCServer(t, "null", "")
	client := NewRPCClient(srv.URL)

	raw, err := client.GetTransaction(context.Background(), solana.MustSignatureFromBase58(testSignature), GetTransactionConfig{
		Encoding: solana.EncodingJSONParsed,
	})
	require.NoError(t, err)

	_, err = DecodeTransaction(testSignature, raw)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRealRPCClient_RPCError(t *testing.T) {
	srv, _ := newRPCServer(t, "", "Invalid param: WrongSize")
	client := NewRPCClient(srv.URL)

	_, err := client.GetTransaction(context.Background(), solana.MustSignatureFromBase58(testSignature), GetTransactionConfig{
		Encoding: solana.EncodingJSONParsed,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WrongSize")
}

func TestClient_FetchTransactionOverHTTP(t *testing.T) {
	srv, _ := newRPCServer(t, parsedTransactionJSON, "")
	client := newTestClientFor(NewRPCClient(srv.URL))

	rec, err := client.FetchTransaction(context.Background(), testSignature)
	require.NoError(t, err)

	ext, err := Extract(rec, Options{})
	require.NoError(t, err)
	assert.Len(t, ext.SOLEvents(), 1)
	assert.Len(t, ext.TokenEvents(), 1)
}

func newTestClientFor(rpcClient RPCClient) *Client {
	return NewClient(rpcClient, "custom", "", nil, nil)
}
