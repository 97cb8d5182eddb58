package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/keystore"
	"github.com/celestiaorg/ec2api/test/mocks"
)

func TestKeyPair_EnsureKeyPairIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	m := mocks.NewMockEC2Client()
	svc := NewKeyPairService(m, keystore.New(dir))
	ctx := context.Background()

	name, err := svc.EnsureKeyPair(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, "deploy", name)

	path := filepath.Join(dir, "deploy.pem")
	content, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Equal(t, mocks.DefaultKeyMaterial, string(content))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0400), info.Mode().Perm())

	// A second call reuses the key pair without touching the file
	require.NoError(t, os.Chmod(path, 0600))
	require.NoError(t, os.WriteFile(path, []byte("sentinel"), 0600))

	name, err = svc.EnsureKeyPair(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, "deploy", name)
	assert.Equal(t, 1, m.Calls(mocks.OpCreateKeyPair))
	assert.Equal(t, 2, m.Calls(mocks.OpDescribeKeyPairs))

	content, err = os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(content))
}

func TestKeyPair_ReusesExistingKeyPair(t *testing.T) {
	dir := t.TempDir()
	m := mocks.NewMockEC2Client()
	m.AddKeyPair("existing")

	name, err := NewKeyPairService(m, keystore.New(dir)).EnsureKeyPair(context.Background(), "existing")
	require.NoError(t, err)
	assert.Equal(t, "existing", name)
	assert.Equal(t, 0, m.Calls(mocks.OpCreateKeyPair))
	assert.NoFileExists(t, filepath.Join(dir, "existing.pem"))
}

func TestKeyPair_DuplicateOnCreateIsReused(t *testing.T) {
	dir := t.TempDir()
	m := mocks.NewMockEC2Client()
	m.FailNext(mocks.OpCreateKeyPair, mocks.APIError(mocks.CodeKeyPairDuplicate, "exists"))

	name, err := NewKeyPairService(m, keystore.New(dir)).EnsureKeyPair(context.Background(), "racy")
	require.NoError(t, err)
	assert.Equal(t, "racy", name)
	assert.NoFileExists(t, filepath.Join(dir, "racy.pem"))
}

func TestKeyPair_Errors(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		err      error
		wantKind compute.ErrorKind
	}{
		{
			name:     "missing credentials on describe",
			op:       mocks.OpDescribeKeyPairs,
			err:      mocks.ErrNoCredentials,
			wantKind: compute.KindCredentials,
		},
		{
			name:     "rejected create",
			op:       mocks.OpCreateKeyPair,
			err:      mocks.APIError(mocks.CodeInvalidParameter, "bad name"),
			wantKind: compute.KindClient,
		},
		{
			name:     "network failure",
			op:       mocks.OpCreateKeyPair,
			err:      mocks.ErrNetwork,
			wantKind: compute.KindUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mocks.NewMockEC2Client()
			m.FailNext(tt.op, tt.err)

			_, err := NewKeyPairService(m, keystore.New(t.TempDir())).EnsureKeyPair(context.Background(), "k")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, compute.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
