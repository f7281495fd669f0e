package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ci-deployer/src/apperr"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://ci/", "bot", "token")

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL() != "https://ci/" {
		t.Errorf("BaseURL() = %v", client.BaseURL())
	}
	if client.httpClient == nil || client.downloadClient == nil {
		t.Error("NewClient() http clients are nil")
	}
}

func TestAPIURL(t *testing.T) {
	for _, in := range []string{"https://ci/job/x/42/", "https://ci/job/x/42"} {
		if got := APIURL(in); got != "https://ci/job/x/42/api/json" {
			t.Errorf("APIURL(%q) = %q", in, got)
		}
	}
}

func TestClient_FetchTree_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "token" {
			t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
		}
		if r.URL.Path != "/job/folder/job/app/api/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"displayName": "app", "lastSuccessfulBuild": {"number": 42}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "token")
	tree, err := client.FetchTree(context.Background(), server.URL+"/job/folder/job/app")
	if err != nil {
		t.Fatalf("FetchTree() error = %v", err)
	}
	v, ok := GetElement(tree, "lastSuccessfulBuild/number")
	if n, _ := v.Int(); !ok || n != 42 {
		t.Errorf("lastSuccessfulBuild/number = %v", n)
	}
}

func TestClient_FetchTree_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: "no such job", wantErr: apperr.ErrLoad},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "", wantErr: apperr.ErrLoad},
		{name: "empty body", status: http.StatusOK, body: "", wantErr: apperr.ErrLoad},
		{name: "malformed body", status: http.StatusOK, body: "{'python': 'dict'}", wantErr: apperr.ErrLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "bot", "token")
			_, err := client.FetchTree(context.Background(), server.URL+"/job/app")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FetchTree() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_FetchTree_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, "bot", "token")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchTree(ctx, server.URL+"/job/app")
	if !errors.Is(err, apperr.ErrLoad) || !errors.Is(err, apperr.ErrRemoteTimeout) {
		t.Errorf("FetchTree() error = %v, want ErrLoad and ErrRemoteTimeout", err)
	}
}

func TestClient_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("war-bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot", "token")
	dir := t.TempDir()
	dest := filepath.Join(dir, "zanata.war")

	if err := client.Download(context.Background(), server.URL+"/artifact/zanata.war", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "war-bytes" {
		t.Errorf("downloaded content = %q, %v", data, err)
	}

	err = client.Download(context.Background(), server.URL+"/missing", filepath.Join(dir, "missing.war"))
	if !errors.Is(err, apperr.ErrRemoteOperation) {
		t.Errorf("Download() error = %v, want ErrRemoteOperation", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "missing.war")); !os.IsNotExist(statErr) {
		t.Error("failed download should not leave a file behind")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the completed download in %s, got %d entries", dir, len(entries))
	}
}
