package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func TestValkeyQueueDeliversJobs(t *testing.T) {
	addr := os.Getenv("ENERGY_TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("ENERGY_TEST_VALKEY_ADDR not set")
	}
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	key := "energy:test:jobs:" + uuid.NewString()
	t.Cleanup(func() {
		_ = client.Do(context.Background(), client.B().Del().Key(key).Build()).Error()
	})

	q := NewValkeyQueue(client, key, nil)
	q.pollTimeout = time.Second

	type job struct {
		name    string
		payload string
	}
	got := make(chan job, 2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "usage.save", []byte(`{"seq":1}`)))
	q.SetHandler(func(ctx context.Context, name string, payload []byte) {
		got <- job{name: name, payload: string(payload)}
	})
	require.NoError(t, q.Enqueue(ctx, "usage.save", []byte(`{"seq":2}`)))

	for _, want := range []string{`{"seq":1}`, `{"seq":2}`} {
		select {
		case j := <-got:
			require.Equal(t, "usage.save", j.name)
			require.JSONEq(t, want, j.payload)
		case <-time.After(5 * time.Second):
			t.Fatalf("job %s not delivered", want)
		}
	}

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
