package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swiftdrop/courier-relay/internal/model"
)

func TestClient_PackageStatus_FlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/99" {
			t.Errorf("path = %q, want /packages/99", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "in transit"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.PackageStatus(context.Background(), 99)
	if err != nil {
		t.Fatalf("PackageStatus failed: %v", err)
	}
	if status != StatusInTransit {
		t.Errorf("status = %q, want %q", status, StatusInTransit)
	}
}

func TestClient_PackageStatus_NestedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"status": "delivered"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.PackageStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("PackageStatus failed: %v", err)
	}
	if status != "delivered" {
		t.Errorf("status = %q, want %q", status, "delivered")
	}
}

func TestClient_PackageStatus_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "empty status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>oops</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL)
			if _, err := c.PackageStatus(context.Background(), 5); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_PackageStatus_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, WithStatusTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.PackageStatus(context.Background(), 7)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("lookup took %v, should be bounded by the status timeout", elapsed)
	}
}

func TestClient_StorePosition(t *testing.T) {
	var got model.Position
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/location/store" {
			t.Errorf("path = %q, want /location/store", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pos := model.Position{CourierID: 7, Latitude: 10.5, Longitude: 20.25, Timestamp: model.Now()}
	if err := c.StorePosition(context.Background(), pos); err != nil {
		t.Fatalf("StorePosition failed: %v", err)
	}
	if got.CourierID != 7 || got.Latitude != 10.5 {
		t.Errorf("backend received %+v, want %+v", got, pos)
	}
}

func TestClient_StorePosition_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.StorePosition(context.Background(), model.Position{CourierID: 1})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
	}
}

func TestClient_BaseURLTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/1" {
			t.Errorf("path = %q, want /packages/1", r.URL.Path)
		}
		w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	if _, err := c.PackageStatus(context.Background(), 1); err != nil {
		t.Fatalf("PackageStatus failed: %v", err)
	}
}
