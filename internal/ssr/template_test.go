package ssr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	calls atomic.Int32
	files map[string]string
}

func (c *countingReader) read(name string) ([]byte, error) {
	c.calls.Add(1)
	if content, ok := c.files[name]; ok {
		return []byte(content), nil
	}
	return nil, errors.New("ENOENT: " + name)
}

type fallbackCounter struct {
	countingRecorder
	fallbacks atomic.Int32
}

func (f *fallbackCounter) IncTemplateFallback() { f.fallbacks.Add(1) }

func TestTemplateLoaderPrefersPrimary(t *testing.T) {
	r := &countingReader{files: map[string]string{"primary.html": "P", "fallback.html": "F"}}
	rec := &fallbackCounter{}
	loader := NewTemplateLoader("primary.html", "fallback.html", WithReadFunc(r.read), WithLoaderRecorder(rec))

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P", got)
	assert.Equal(t, int32(0), rec.fallbacks.Load())
}

func TestTemplateLoaderFallsBack(t *testing.T) {
	r := &countingReader{files: map[string]string{"fallback.html": "F"}}
	rec := &fallbackCounter{}
	loader := NewTemplateLoader("primary.html", "fallback.html", WithReadFunc(r.read), WithLoaderRecorder(rec))

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "F", got)
	assert.Equal(t, int32(1), rec.fallbacks.Load())
}

func TestTemplateLoaderEmptyPaths(t *testing.T) {
	loader := NewTemplateLoader(" ", "", WithReadFunc((&countingReader{}).read))

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrTemplateUnavailable)
}

func TestCachedStoreLoadsExactlyOnce(t *testing.T) {
	r := &countingReader{files: map[string]string{"primary.html": "P"}}
	store := NewCachedStore(NewTemplateLoader("primary.html", "fallback.html", WithReadFunc(r.read)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Template(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "P", got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
}

func TestCachedStoreIgnoresFirstCallerCancellation(t *testing.T) {
	r := &countingReader{files: map[string]string{"primary.html": "P"}}
	store := NewCachedStore(NewTemplateLoader("primary.html", "", WithReadFunc(r.read)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := store.Template(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P", got)
}

func TestReloadingStoreReadsEveryCall(t *testing.T) {
	r := &countingReader{files: map[string]string{"primary.html": "v1"}}
	store := NewReloadingStore(NewTemplateLoader("primary.html", "", WithReadFunc(r.read)))

	got, err := store.Template(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	r.files["primary.html"] = "v2"
	got, err = store.Template(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestTemplateUnavailableErrorMessageOmitsUnsetParts(t *testing.T) {
	cause := errors.New("disk gone")

	wrapped := &TemplateUnavailableError{PrimaryErr: cause}
	assert.Equal(t, "ssr: template unavailable: primary: disk gone", wrapped.Error())
	assert.NotContains(t, wrapped.Error(), `""`)
	assert.NotContains(t, wrapped.Error(), "<nil>")

	full := &TemplateUnavailableError{Primary: "a.html", Fallback: "b.html", PrimaryErr: cause, FallbackErr: cause}
	assert.Equal(t, `ssr: template unavailable: primary "a.html": disk gone; fallback "b.html": disk gone`, full.Error())

	assert.Equal(t, "ssr: template unavailable", (&TemplateUnavailableError{}).Error())
}
