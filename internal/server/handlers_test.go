package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/eip7702-demo/internal/delegation"
)

type mockChainReader struct {
	mock.Mock
}

func (m *mockChainReader) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	args := m.Called(ctx, account, blockNumber)
	code, _ := args.Get(0).([]byte)
	return code, args.Error(1)
}

func (m *mockChainReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	args := m.Called(ctx, *msg.To, blockNumber)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

var (
	eoa    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	target = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func newTestRouter(chain ChainReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationIDMiddleware())
	InitializeRoutes(router, chain)
	return router
}

func serve(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHealthHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	handler.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, HealthResponse{Status: "ok"}, response)
}

func TestDelegationHandler_GetDelegation(t *testing.T) {
	tests := []struct {
		name           string
		address        string
		code           []byte
		codeErr        error
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "delegated account",
			address:        eoa.Hex(),
			code:           delegation.Marker(target),
			expectedStatus: http.StatusOK,
			expectedBody: DelegationResponse{
				Address:   eoa.Hex(),
				Delegated: true,
				Target:    target.Hex(),
				Code:      "0xef0100" + common.Bytes2Hex(target.Bytes()),
			},
		},
		{
			name:           "plain EOA",
			address:        eoa.Hex(),
			expectedStatus: http.StatusOK,
			expectedBody:   DelegationResponse{Address: eoa.Hex(), Code: "0x"},
		},
		{
			name:           "malformed address",
			address:        "0x1234",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   ErrorResponse{Error: "Invalid address"},
		},
		{
			name:           "node unavailable",
			address:        eoa.Hex(),
			codeErr:        errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   ErrorResponse{Error: "Failed to read account code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &mockChainReader{}
			if tt.expectedStatus != http.StatusBadRequest {
				chain.On("CodeAt", mock.Anything, eoa, (*big.Int)(nil)).Return(tt.code, tt.codeErr)
			}

			w := serve(newTestRouter(chain), "/api/v1/accounts/"+tt.address+"/delegation")

			assert.Equal(t, tt.expectedStatus, w.Code)
			expected, err := json.Marshal(tt.expectedBody)
			require.NoError(t, err)
			assert.JSONEq(t, string(expected), w.Body.String())
			chain.AssertExpectations(t)
		})
	}
}

func TestCounterHandler_GetNumber(t *testing.T) {
	encoded := func(n *big.Int) []byte { return common.LeftPadBytes(n.Bytes(), 32) }

	tests := []struct {
		name           string
		address        string
		output         []byte
		callErr        error
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "small number",
			address:        eoa.Hex(),
			output:         encoded(big.NewInt(3)),
			expectedStatus: http.StatusOK,
			expectedBody:   NumberResponse{Address: eoa.Hex(), Number: "3"},
		},
		{
			name:           "max uint256 is not truncated",
			address:        eoa.Hex(),
			output:         encoded(math.MaxBig256),
			expectedStatus: http.StatusOK,
			expectedBody:   NumberResponse{Address: eoa.Hex(), Number: math.MaxBig256.String()},
		},
		{
			name:           "no code",
			address:        eoa.Hex(),
			expectedStatus: http.StatusNotFound,
			expectedBody:   ErrorResponse{Error: "No Counter code at address"},
		},
		{
			name:           "call reverted",
			address:        eoa.Hex(),
			callErr:        errors.New("execution reverted"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   ErrorResponse{Error: "Failed to read number"},
		},
		{
			name:           "missing prefix",
			address:        "70997970C51812dc3A010C7d01b50e0d17dc79C8",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   ErrorResponse{Error: "Invalid address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &mockChainReader{}
			if tt.expectedStatus != http.StatusBadRequest {
				chain.On("CallContract", mock.Anything, eoa, (*big.Int)(nil)).Return(tt.output, tt.callErr)
			}

			w := serve(newTestRouter(chain), "/api/v1/counter/"+tt.address+"/number")

			assert.Equal(t, tt.expectedStatus, w.Code)
			expected, err := json.Marshal(tt.expectedBody)
			require.NoError(t, err)
			assert.JSONEq(t, string(expected), w.Body.String())
			chain.AssertExpectations(t)
		})
	}
}
