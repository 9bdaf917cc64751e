package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/contracts/counter"
	"github.com/cyphera/eip7702-demo/internal/delegation"
	"github.com/cyphera/eip7702-demo/internal/logger"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

// ChainReader is the read-only part of the chain backend the API needs.
type ChainReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// DelegationResponse describes the delegation state of an account.
type DelegationResponse struct {
	Address   string `json:"address"`
	Delegated bool   `json:"delegated"`
	Target    string `json:"target,omitempty"`
	Code      string `json:"code"`
}

// NumberResponse carries a Counter value as a decimal string.
type NumberResponse struct {
	Address string `json:"address"`
	Number  string `json:"number"`
}

// sendError logs the error with the given message and sends a JSON error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("correlation_id", GetCorrelationID(c)),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health reports that the server is running.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// DelegationHandler serves EIP-7702 designation lookups.
type DelegationHandler struct {
	chain ChainReader
}

func NewDelegationHandler(chain ChainReader) *DelegationHandler {
	return &DelegationHandler{chain: chain}
}

// GetDelegation returns whether the account's code is a delegation marker
// and, if so, its target.
func (h *DelegationHandler) GetDelegation(c *gin.Context) {
	address, err := wallet.ParseAddress(c.Param("address"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid address", err)
		return
	}

	d, err := delegation.ReadDesignation(c.Request.Context(), h.chain, address)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to read account code", err)
		return
	}

	resp := DelegationResponse{
		Address:   d.Account.Hex(),
		Delegated: d.Delegated,
		Code:      hexutil.Encode(d.Code),
	}
	if d.Delegated {
		resp.Target = d.Target.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

// CounterHandler serves Counter reads at a contract or delegated EOA.
type CounterHandler struct {
	chain ChainReader
}

func NewCounterHandler(chain ChainReader) *CounterHandler {
	return &CounterHandler{chain: chain}
}

// GetNumber returns number() at the given address.
func (h *CounterHandler) GetNumber(c *gin.Context) {
	address, err := wallet.ParseAddress(c.Param("address"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid address", err)
		return
	}

	number, err := counter.New(address, h.chain).Number(c.Request.Context())
	if errors.Is(err, counter.ErrNoCode) {
		sendError(c, http.StatusNotFound, "No Counter code at address", err)
		return
	}
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to read number", err)
		return
	}

	c.JSON(http.StatusOK, NumberResponse{
		Address: address.Hex(),
		Number:  number.String(),
	})
}
