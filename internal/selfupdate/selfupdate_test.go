package selfupdate

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	cerrors "github.com/stu2116Edward/dockman/util/common/errors"
)

func TestApplyToFallsBackToSecondSource(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new build"))
	}))
	defer good.Close()

	path := filepath.Join(t.TempDir(), "dockman")
	if err := os.WriteFile(path, []byte("old build"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := New([]Source{
		{Name: "broken", URL: broken.URL},
		{Name: "good", URL: good.URL},
	}, 2*time.Second)

	src, err := u.ApplyTo(path)
	if err != nil {
		t.Fatalf("ApplyTo() = %v", err)
	}
	if src != "good" {
		t.Errorf("winning source = %q, want good", src)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new build" {
		t.Errorf("binary content = %q, want the replacement", data)
	}
	if _, err := os.Stat(path + ".new"); !os.IsNotExist(err) {
		t.Error("sidecar file was left behind")
	}
}

func TestApplyToRejectsEmptyBody(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()

	path := filepath.Join(t.TempDir(), "dockman")
	if err := os.WriteFile(path, []byte("old build"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := New([]Source{{Name: "empty", URL: empty.URL}}, 2*time.Second)
	_, err := u.ApplyTo(path)
	if !errors.Is(err, cerrors.ErrNoMirrorAvailable) {
		t.Fatalf("ApplyTo() = %v, want ErrNoMirrorAvailable", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old build" {
		t.Error("original binary was clobbered by a failed update")
	}
}
