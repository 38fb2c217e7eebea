package geodata_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/geodata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const layer = "ch.bfs.gebaeude_wohnungs_register"

var rolle = domain.Address{Street: "Route de l'Hôpital 16b", Postcode: "1180", Locality: "Rolle"}

// newGeoServer fakes SearchServer and MapServer
func newGeoServer(t *testing.T, searchBody, featureBody string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/SearchServer", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, "featuresearch", r.URL.Query().Get("type"))
		assert.Equal(t, layer, r.URL.Query().Get("features"))
		assert.Equal(t, "Route de l'Hôpital 16b, 1180 Rolle", r.URL.Query().Get("searchText"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchBody)
	})
	mux.HandleFunc("/MapServer/"+layer+"/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4326", r.URL.Query().Get("sr"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/1234567_0"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, featureBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *geodata.Client {
	return geodata.NewClient(config.GeoDataConfig{
		SearchURL:  srv.URL + "/SearchServer",
		FeatureURL: srv.URL + "/MapServer",
		Layer:      layer,
		Timeout:    5,
	}, zap.NewNop())
}

const searchHit = `{"results":[{"attrs":{"featureId":"1234567_0","lat":46.45,"lon":6.33}}]}`

// ============================================================================
// Client
// ============================================================================

func TestClient_Lookup(t *testing.T) {
	srv := newGeoServer(t, searchHit,
		`{"feature":{"attributes":{"egid":1234567,"garea":142.5,"gastw":3,"gbauj":1965,"gebnr":"A12","lparz":"845"}}}`, nil)

	b, err := newClient(srv).Lookup(context.Background(), rolle)
	require.NoError(t, err)
	assert.Equal(t, "1234567", b.EGID)
	assert.True(t, b.GroundArea.Equal(decimal.NewFromFloat(142.5)))
	assert.Equal(t, 3, b.AboveGroundFloors)
	assert.Equal(t, "1965", b.ConstructionYear)
	assert.Equal(t, "A12", b.BuildingNumber)
	assert.Equal(t, "845", b.ParcelNumber)
	assert.Equal(t, domain.DefaultLayerName, b.LayerName)
	assert.True(t, b.FromRegistry)
}

func TestClient_LookupMissingAttributesBecomeNA(t *testing.T) {
	srv := newGeoServer(t, searchHit, `{"feature":{"properties":{"garea":"90"}}}`, nil)

	b, err := newClient(srv).Lookup(context.Background(), rolle)
	require.NoError(t, err)
	assert.Equal(t, domain.NotAvailable, b.EGID)
	assert.Equal(t, domain.NotAvailable, b.ConstructionYear)
	assert.Equal(t, 0, b.AboveGroundFloors)
}

func TestClient_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		search  string
		feature string
		wantErr error
	}{
		{"no results", `{"results":[]}`, `{}`, domain.ErrBuildingNotFound},
		{"no feature id", `{"results":[{"attrs":{}}]}`, `{}`, domain.ErrBuildingNotFound},
		{"zero ground area", searchHit, `{"feature":{"attributes":{"egid":1,"garea":0}}}`, domain.ErrBuildingNotFound},
		{"malformed search", `{"results":`, `{}`, domain.ErrExternalLookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeoServer(t, tt.search, tt.feature, nil)
			_, err := newClient(srv).Lookup(context.Background(), rolle)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv).Lookup(context.Background(), rolle)
	assert.ErrorIs(t, err, domain.ErrExternalLookup)
}

// ============================================================================
// Cache
// ============================================================================

func addr(n int) domain.Address {
	return domain.Address{Street: fmt.Sprintf("Rue %d", n), Postcode: "1180", Locality: "Rolle"}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := geodata.NewCache(2)
	c.Add(addr(1), geodata.CacheEntry{Found: true})
	c.Add(addr(2), geodata.CacheEntry{Found: true})

	_, ok := c.Get(addr(1)) // 1 becomes most recent
	require.True(t, ok)

	c.Add(addr(3), geodata.CacheEntry{Found: true})

	_, ok = c.Get(addr(2))
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.Get(addr(1))
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Capacity)
}

func TestCache_KeyIsNormalized(t *testing.T) {
	c := geodata.NewCache(10)
	c.Add(rolle, geodata.CacheEntry{Found: true, Building: domain.BuildingAttributes{EGID: "42"}})

	entry, ok := c.Get(domain.Address{Street: "  route de l'hôpital   16B ", Postcode: "1180", Locality: "ROLLE"})
	require.True(t, ok)
	assert.Equal(t, "42", entry.Building.EGID)
}

func TestCache_Clear(t *testing.T) {
	c := geodata.NewCache(0)
	assert.Equal(t, geodata.DefaultCacheCapacity, c.Stats().Capacity)

	c.Add(addr(1), geodata.CacheEntry{})
	c.Add(addr(2), geodata.CacheEntry{})
	assert.Equal(t, 2, c.Clear())

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, uint64(0), stats.Evictions)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := geodata.NewCache(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(addr(i*100+j), geodata.CacheEntry{Found: true})
				c.Get(addr(j))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, c.Stats().Size)
}

// ============================================================================
// CachedProvider
// ============================================================================

type stubProvider struct {
	calls    int
	building domain.BuildingAttributes
	err      error
}

func (s *stubProvider) Lookup(context.Context, domain.Address) (domain.BuildingAttributes, error) {
	s.calls++
	return s.building, s.err
}

func TestCachedProvider(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"found is cached", nil, 1},
		{"not found is cached", domain.ErrBuildingNotFound, 1},
		{"transport error is not cached", fmt.Errorf("%w: timeout", domain.ErrExternalLookup), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubProvider{building: domain.BuildingAttributes{EGID: "7"}, err: tt.err}
			p := geodata.NewCachedProvider(stub, geodata.NewCache(10), zap.NewNop())

			for i := 0; i < 2; i++ {
				_, err := p.Lookup(context.Background(), rolle)
				if tt.err == nil {
					assert.NoError(t, err)
				} else {
					assert.True(t, errors.Is(err, tt.err) || errors.Is(err, domain.ErrBuildingNotFound))
				}
			}
			assert.Equal(t, tt.wantCalls, stub.calls)
		})
	}
}

func TestCachedProvider_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := newGeoServer(t, searchHit, `{"feature":{"attributes":{"egid":1,"garea":100,"gastw":2}}}`, &calls)
	p := geodata.NewCachedProvider(newClient(srv), geodata.NewCache(10), zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := p.Lookup(context.Background(), rolle)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(2), p.Cache().Stats().Hits)
}
