package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"leasedesk/internal/extract"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ParsePDFContract(ctx context.Context, r io.Reader, filename string) (*extract.ParseResult, error) {
	args := m.Called(ctx, r, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.ParseResult), args.Error(1)
}
