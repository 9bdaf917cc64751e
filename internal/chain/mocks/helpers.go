package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewMockBackendForTest creates a new mock Backend for testing
func NewMockBackendForTest(t *testing.T) *MockBackend {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockBackend(ctrl)
}

// NewMockReceiptReaderForTest creates a new mock ReceiptReader for testing
func NewMockReceiptReaderForTest(t *testing.T) *MockReceiptReader {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockReceiptReader(ctrl)
}
