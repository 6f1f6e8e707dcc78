package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"leasedesk/internal/model"
	"leasedesk/internal/service"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Start(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*service.SessionView, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionView), args.Error(1)
}

func (m *MockIngestService) Get(ctx context.Context, id string) (*service.SessionView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionView), args.Error(1)
}

func (m *MockIngestService) Update(ctx context.Context, id string, upd service.SessionUpdate) (*service.SessionView, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionView), args.Error(1)
}

func (m *MockIngestService) ReplaceFile(ctx context.Context, id string, r io.Reader, originalFilename string, contentType string, size int64) (*service.SessionView, error) {
	args := m.Called(ctx, id, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionView), args.Error(1)
}

func (m *MockIngestService) Submit(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockIngestService) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
