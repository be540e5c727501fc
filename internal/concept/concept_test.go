package concept

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/httpclient"
)

const thesaurusURL = "https://thesaurus.test/api"

func testTypes() []ConceptType {
	return []ConceptType{
		{ID: "c-100", Key: "stratigraphic-unit", Label: "Stratigraphic unit", Code: "US"},
		{ID: "c-200", Key: "structure", Label: "Structure", Code: "ST"},
	}
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()
	t.Attr("component", "concept")

	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	ct, err := reg.Resolve(t.Context(), " stratigraphic-unit ")
	require.NoError(t, err)
	assert.Equal(t, "c-100", ct.ID)
	assert.Equal(t, "US", ct.Code)

	_, err = reg.Resolve(t.Context(), "missing")
	require.ErrorIs(t, err, ErrConceptNotFound)
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistry_ResolveReturnsCopy(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)

	ct, err := reg.Resolve(t.Context(), "structure")
	require.NoError(t, err)
	ct.Code = "changed"

	again, err := reg.Resolve(t.Context(), "structure")
	require.NoError(t, err)
	assert.Equal(t, "ST", again.Code)
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		types []ConceptType
	}{
		{"missing id", []ConceptType{{Key: "a"}}},
		{"missing key", []ConceptType{{ID: "1"}}},
		{"duplicate key", []ConceptType{{ID: "1", Key: "a"}, {ID: "2", Key: "a"}}},
		{"duplicate id", []ConceptType{{ID: "1", Key: "a"}, {ID: "1", Key: "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(tt.types)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestNewRegistryFromSettings_MergesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.yaml")
	content := `concept_types:
  - id: c-300
    key: burial
    label: Burial
    code: T
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := NewRegistryFromSettings(&conf.ConceptSettings{
		Types: []conf.ConceptTypeSettings{{ID: "c-100", Key: "stratigraphic-unit", Code: "US"}},
		File:  path,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	ct, err := reg.Resolve(t.Context(), "burial")
	require.NoError(t, err)
	assert.Equal(t, "T", ct.Code)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("concept_types: [unterminated"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

// newMockedRemote returns a resolver whose transport is an httpmock transport.
func newMockedRemote(t *testing.T, opts ...RemoteOption) (*RemoteResolver, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{Transport: transport, DefaultTimeout: time.Second})
	t.Cleanup(client.Close)

	resolver, err := NewRemoteResolver(thesaurusURL+"/", client, nil, opts...)
	require.NoError(t, err)
	return resolver, transport
}

func TestRemoteResolver_RateLimit(t *testing.T) {
	t.Parallel()

	// One token, refilled far slower than the test runs.
	resolver, transport := newMockedRemote(t, WithRateLimit(0.001, 1))
	transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/structure",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, ConceptType{ID: "c-200", Key: "structure"}))

	_, err := resolver.Resolve(t.Context(), "structure")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = resolver.Resolve(ctx, "structure")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Equal(t, 1, transport.GetTotalCallCount(), "limited request must not reach the service")
}

func TestRemoteResolver_Resolve(t *testing.T) {
	t.Parallel()

	resolver, transport := newMockedRemote(t)
	transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/structure",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, ConceptType{ID: "c-200", Key: "structure", Code: "ST"}))

	ct, err := resolver.Resolve(t.Context(), "structure")
	require.NoError(t, err)
	assert.Equal(t, "c-200", ct.ID)
	assert.Equal(t, "ST", ct.Code)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRemoteResolver_EscapesKey(t *testing.T) {
	t.Parallel()

	resolver, transport := newMockedRemote(t)
	transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/wall%2Ffoundation",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"id": "c-9"}))

	ct, err := resolver.Resolve(t.Context(), "wall/foundation")
	require.NoError(t, err)
	assert.Equal(t, "c-9", ct.ID)
	assert.Equal(t, "wall/foundation", ct.Key, "missing key defaults to the requested key")
}

func TestRemoteResolver_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		check     func(t *testing.T, err error)
	}{
		{
			name:      "not found",
			responder: httpmock.NewStringResponder(http.StatusNotFound, ""),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorIs(t, err, ErrConceptNotFound)
			},
		},
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.NotErrorIs(t, err, ErrConceptNotFound)
				assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
			},
		},
		{
			name:      "malformed body",
			responder: httpmock.NewStringResponder(http.StatusOK, "{not json"),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
			},
		},
		{
			name:      "missing id",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"key":"structure"}`),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			},
		},
		{
			name:      "transport error",
			responder: httpmock.NewErrorResponder(context.DeadlineExceeded),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resolver, transport := newMockedRemote(t)
			transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/structure", tt.responder)

			_, err := resolver.Resolve(t.Context(), "structure")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNewRemoteResolver_InvalidURL(t *testing.T) {
	t.Parallel()

	client := httpclient.New(nil)
	t.Cleanup(client.Close)

	for _, raw := range []string{"", "ftp://thesaurus", "not a url", "http://"} {
		_, err := NewRemoteResolver(raw, client, nil)
		assert.Error(t, err, "url %q", raw)
	}
}

type countingResolver struct {
	calls atomic.Int32
	delay time.Duration
	next  Resolver
}

func (c *countingResolver) Resolve(ctx context.Context, key string) (*ConceptType, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.next.Resolve(ctx, key)
}

func TestCachingResolver_CachesHits(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)
	inner := &countingResolver{next: reg}
	cached := NewCachingResolver(inner, time.Minute)

	for range 3 {
		ct, err := cached.Resolve(t.Context(), "structure")
		require.NoError(t, err)
		assert.Equal(t, "c-200", ct.ID)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachingResolver_DoesNotCacheMisses(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)
	inner := &countingResolver{next: reg}
	cached := NewCachingResolver(inner, time.Minute)

	for range 2 {
		_, err := cached.Resolve(t.Context(), "missing")
		require.ErrorIs(t, err, ErrConceptNotFound)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachingResolver_CollapsesConcurrentLookups(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)
	inner := &countingResolver{next: reg, delay: 50 * time.Millisecond}
	cached := NewCachingResolver(inner, time.Minute)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			ct, err := cached.Resolve(t.Context(), "stratigraphic-unit")
			assert.NoError(t, err)
			assert.Equal(t, "c-100", ct.ID)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int32(2), "concurrent lookups should share one call")
}

func TestChain_FallsThroughOnNotFound(t *testing.T) {
	t.Parallel()

	local, err := NewRegistry(testTypes()[:1])
	require.NoError(t, err)
	remote, transport := newMockedRemote(t)
	transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/structure",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, ConceptType{ID: "c-200", Key: "structure"}))
	transport.RegisterNoResponder(httpmock.NewStringResponder(http.StatusNotFound, ""))

	chain := Chain{local, remote}

	ct, err := chain.Resolve(t.Context(), "stratigraphic-unit")
	require.NoError(t, err)
	assert.Equal(t, "c-100", ct.ID)
	assert.Equal(t, 0, transport.GetTotalCallCount(), "local hit must not reach the remote service")

	ct, err = chain.Resolve(t.Context(), "structure")
	require.NoError(t, err)
	assert.Equal(t, "c-200", ct.ID)

	_, err = chain.Resolve(t.Context(), "unknown")
	require.ErrorIs(t, err, ErrConceptNotFound)
}

func TestChain_StopsOnOtherErrors(t *testing.T) {
	t.Parallel()

	remote, transport := newMockedRemote(t)
	transport.RegisterResponder(http.MethodGet, thesaurusURL+"/concept-types/structure",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))
	reg, err := NewRegistry(testTypes())
	require.NoError(t, err)

	_, err = Chain{remote, reg}.Resolve(t.Context(), "structure")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConceptNotFound)
}
