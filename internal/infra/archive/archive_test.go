package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
	require.Equal(t, "minio:9000", sanitizeEndpoint("minio:9000"))
}

func TestMemoryArchiveCopiesData(t *testing.T) {
	a := NewMemoryArchive()
	data := []byte("a,b\n")
	require.NoError(t, a.Put(context.Background(), "runs/1/features.csv", data, "text/csv"))
	data[0] = 'z'

	obj, ok := a.Get("runs/1/features.csv")
	require.True(t, ok)
	require.Equal(t, "a,b\n", string(obj.Data))
	require.Equal(t, "text/csv", obj.ContentType)
	require.Equal(t, []string{"runs/1/features.csv"}, a.Keys())
}

func TestNewS3ArchiveRequiresBucket(t *testing.T) {
	_, err := NewS3Archive("localhost:9000", "k", "s", "", "auto", nil)
	require.Error(t, err)
}
