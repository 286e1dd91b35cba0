package usecase_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

type mockCompletion struct{ mock.Mock }

func (m *mockCompletion) Complete(ctx domain.Context, credential string, req domain.CompletionRequest) (string, error) {
	args := m.Called(ctx, credential, req)
	return args.String(0), args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx domain.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Credential(ctx domain.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveCredential(ctx domain.Context, credential string) error {
	return m.Called(ctx, credential).Error(0)
}

func (m *mockStore) ClearCredential(ctx domain.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) LastAnalysis(ctx domain.Context) (domain.Analysis, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Analysis), args.Error(1)
}

func (m *mockStore) SaveLastAnalysis(ctx domain.Context, a domain.Analysis) error {
	return m.Called(ctx, a).Error(0)
}
