package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	calls   int
	results []error
	chunks  []string
	block   bool
}

func (c *scriptedClient) next() error {
	c.calls++
	if c.calls <= len(c.results) {
		return c.results[c.calls-1]
	}
	return nil
}

func (c *scriptedClient) Complete(ctx context.Context, _ Request) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := c.next(); err != nil {
		return "", err
	}
	return "ok", nil
}

func (c *scriptedClient) Stream(ctx context.Context, _ Request, onChunk ChunkFunc) (string, error) {
	err := c.next()
	full := ""
	for i, chunk := range c.chunks {
		if err != nil && i == 1 {
			return full, err
		}
		full += chunk
		if cbErr := onChunk(chunk); cbErr != nil {
			return full, cbErr
		}
	}
	if err != nil {
		return full, err
	}
	return full, nil
}

func testOptions() Options {
	return Options{Timeout: time.Second, StreamTimeout: time.Second, MaxRetries: 1, InitialInterval: time.Millisecond}
}

func TestResilientCompleteRetriesOnce(t *testing.T) {
	tests := []struct {
		name      string
		results   []error
		wantErr   bool
		wantCalls int
	}{
		{"first try", nil, false, 1},
		{"one transient failure", []error{errors.New("503")}, false, 2},
		{"exhausted", []error{errors.New("503"), errors.New("503")}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &scriptedClient{results: tt.results}
			r := NewResilient(fake, testOptions(), nil)

			text, err := r.Complete(context.Background(), Request{})
			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUpstream)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", text)
		})
	}
}

func TestResilientCompleteTimeout(t *testing.T) {
	fake := &scriptedClient{block: true}
	opts := testOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.MaxRetries = 0

	_, err := NewResilient(fake, opts, nil).Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResilientCompleteCallerCancelNotRetried(t *testing.T) {
	fake := &scriptedClient{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResilient(fake, testOptions(), nil).Complete(ctx, Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fake.calls)
}

func TestResilientStreamNoRetryAfterOutput(t *testing.T) {
	fake := &scriptedClient{results: []error{errors.New("reset")}, chunks: []string{"Hola", " mundo"}}
	var got []string

	_, err := NewResilient(fake, testOptions(), nil).Stream(context.Background(), Request{}, func(s string) error {
		got = append(got, s)
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, []string{"Hola"}, got)
}

func TestResilientStreamRetriesBeforeOutput(t *testing.T) {
	fake := &scriptedClient{results: []error{errors.New("refused")}}
	calls := 0
	r := NewResilient(&failFirstStream{inner: fake}, testOptions(), nil)

	text, err := r.Stream(context.Background(), Request{}, func(string) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", text)
	assert.Equal(t, 2, calls)
}

// failFirstStream fails its first call before emitting anything.
type failFirstStream struct {
	inner  *scriptedClient
	failed bool
}

func (f *failFirstStream) Complete(ctx context.Context, req Request) (string, error) {
	return f.inner.Complete(ctx, req)
}

func (f *failFirstStream) Stream(_ context.Context, _ Request, onChunk ChunkFunc) (string, error) {
	if !f.failed {
		f.failed = true
		return "", errors.New("connection refused")
	}
	for _, c := range []string{"Hola", " mundo"} {
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return "Hola mundo", nil
}

func TestUnconfiguredSurfacesAsUpstream(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 0
	r := NewResilient(Unconfigured{}, opts, nil)

	_, err := r.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = r.Stream(context.Background(), Request{}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrUpstream)
}
