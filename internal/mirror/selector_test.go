package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stu2116Edward/dockman/internal/release"
	"github.com/stu2116Edward/dockman/util/common/errors"
)

var listingPattern = regexp.MustCompile(`docker-(\d+\.\d+\.\d+)\.tgz`)

// countingServer serves the given handler and counts every request.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func endpointFor(name, base string) Endpoint {
	return Endpoint{
		Name:    name,
		ListURL: base + "/linux/static/stable/{arch}/",
		FileURL: base + "/linux/static/stable/{arch}/docker-{version}.tgz",
		SumURL:  base + "/linux/static/stable/{arch}/docker-{version}.tgz.sha256",
	}
}

func TestPickPinnedCacheShortCircuit(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cacheDir := t.TempDir()
	artifact := filepath.Join(cacheDir, "docker-24.0.7.tgz")
	if err := os.WriteFile(artifact, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSelector(cacheDir, time.Second)
	res, err := s.PickPinned(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("primary", srv.URL)}, "x86_64", "24.0.7", "docker-24.0.7.tgz")
	if err != nil {
		t.Fatal(err)
	}
	if res.LocalPath != artifact {
		t.Errorf("LocalPath = %q, want %q", res.LocalPath, artifact)
	}
	if got := atomic.LoadInt64(hits); got != 0 {
		t.Errorf("cache hit should skip all network probing, saw %d requests", got)
	}
}

func TestPickPinnedProbeOrderShortCircuit(t *testing.T) {
	okSrv, okHits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	neverSrv, neverHits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := NewSelector(t.TempDir(), time.Second)
	res, err := s.PickPinned(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("first", okSrv.URL), endpointFor("second", neverSrv.URL)},
		"x86_64", "24.0.7", "docker-24.0.7.tgz")
	if err != nil {
		t.Fatal(err)
	}
	if res.Mirror != "first" {
		t.Errorf("Mirror = %q, want first", res.Mirror)
	}
	if got := atomic.LoadInt64(okHits); got != 1 {
		t.Errorf("first mirror probed %d times, want 1", got)
	}
	if got := atomic.LoadInt64(neverHits); got != 0 {
		t.Errorf("second mirror probed %d times after first succeeded, want 0", got)
	}
}

func TestPickPinnedFailover(t *testing.T) {
	deadSrv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	okSrv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := NewSelector(t.TempDir(), time.Second)
	res, err := s.PickPinned(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("dead", deadSrv.URL), endpointFor("alive", okSrv.URL)},
		"x86_64", "24.0.7", "docker-24.0.7.tgz")
	if err != nil {
		t.Fatal(err)
	}
	if res.Mirror != "alive" {
		t.Errorf("Mirror = %q, want alive", res.Mirror)
	}
}

func TestPickPinnedAllMirrorsExhausted(t *testing.T) {
	deadSrv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	s := NewSelector(t.TempDir(), time.Second)
	_, err := s.PickPinned(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("a", deadSrv.URL), endpointFor("b", deadSrv.URL)},
		"x86_64", "24.0.7", "docker-24.0.7.tgz")
	if !errors.Is(err, errors.ErrNoMirrorAvailable) {
		t.Fatalf("error = %v, want ErrNoMirrorAvailable", err)
	}
	var merr *errors.MirrorError
	if !errors.As(err, &merr) {
		t.Fatalf("error %T does not carry probe record", err)
	}
	if len(merr.Probes) != 2 {
		t.Errorf("probe record has %d entries, want 2", len(merr.Probes))
	}
}

func TestPickLatestThirdMirrorWins(t *testing.T) {
	listing := `<a href="docker-24.0.2.tgz">docker-24.0.2.tgz</a>
<a href="docker-24.0.7.tgz">docker-24.0.7.tgz</a>`

	dead1, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	dead2, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	alive, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listing))
	})

	s := NewSelector(t.TempDir(), time.Second)
	res, err := s.PickLatest(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("m1", dead1.URL), endpointFor("m2", dead2.URL), endpointFor("m3", alive.URL)},
		"x86_64", release.ListingExtractor(listingPattern))
	if err != nil {
		t.Fatal(err)
	}
	if res.Mirror != "m3" {
		t.Errorf("Mirror = %q, want m3", res.Mirror)
	}
	if res.Version != "24.0.7" {
		t.Errorf("Version = %q, want semver max 24.0.7", res.Version)
	}
}

func TestPickLatestStopsAtFirstListingMirror(t *testing.T) {
	first, firstHits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="docker-24.0.5.tgz">x</a>`))
	})
	second, secondHits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="docker-25.0.0.tgz">x</a>`))
	})

	s := NewSelector(t.TempDir(), time.Second)
	res, err := s.PickLatest(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("first", first.URL), endpointFor("second", second.URL)},
		"x86_64", release.ListingExtractor(listingPattern))
	if err != nil {
		t.Fatal(err)
	}
	// First mirror yielded results, so its answer stands even though the
	// second mirror advertises a newer version.
	if res.Version != "24.0.5" {
		t.Errorf("Version = %q, want 24.0.5 from the first usable mirror", res.Version)
	}
	if got := atomic.LoadInt64(firstHits); got != 1 {
		t.Errorf("first mirror fetched %d times, want 1", got)
	}
	if got := atomic.LoadInt64(secondHits); got != 0 {
		t.Errorf("second mirror fetched %d times, want 0", got)
	}
}

func TestCatalog(t *testing.T) {
	listing := `docker-24.0.7.tgz docker-24.0.7.tgz docker-23.0.6.tgz docker-25.0.1.tgz`
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listing))
	})

	s := NewSelector(t.TempDir(), time.Second)
	catalog, mirrorName, err := s.Catalog(context.Background(), "docker-engine",
		[]Endpoint{endpointFor("only", srv.URL)}, "x86_64",
		release.ListingExtractor(listingPattern))
	if err != nil {
		t.Fatal(err)
	}
	if mirrorName != "only" {
		t.Errorf("mirror = %q, want only", mirrorName)
	}
	want := []string{"25.0.1", "24.0.7", "23.0.6"}
	if len(catalog.Versions) != len(want) {
		t.Fatalf("catalog = %v, want %v", catalog.Versions, want)
	}
	for i := range want {
		if catalog.Versions[i] != want[i] {
			t.Errorf("catalog[%d] = %q, want %q", i, catalog.Versions[i], want[i])
		}
	}
}
