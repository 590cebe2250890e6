package vfs

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, repo objectstore.Repo, key, ref string) (*objectstore.Result, error) {
	args := m.Called(ctx, repo, key, ref)
	res, _ := args.Get(0).(*objectstore.Result)
	return res, args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, repo objectstore.Repo, key string, req objectstore.PutRequest) (*objectstore.PutResult, error) {
	args := m.Called(ctx, repo, key, req)
	res, _ := args.Get(0).(*objectstore.PutResult)
	return res, args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, repo objectstore.Repo, key string, req objectstore.DeleteRequest) error {
	args := m.Called(ctx, repo, key, req)
	return args.Error(0)
}

func (m *MockStore) Repository(ctx context.Context, repo objectstore.Repo) (*objectstore.Repository, error) {
	args := m.Called(ctx, repo)
	res, _ := args.Get(0).(*objectstore.Repository)
	return res, args.Error(1)
}

func (m *MockStore) Raw(ctx context.Context, repo objectstore.Repo, downloadURL string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, repo, downloadURL)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.String(1), args.Error(2)
}

func (m *MockStore) RawURL(repo objectstore.Repo, branch, key string, proxy bool) string {
	return m.Called(repo, branch, key, proxy).String(0)
}

func (m *MockStore) ProxyURL(downloadURL string, proxy bool) string {
	return m.Called(downloadURL, proxy).String(0)
}
