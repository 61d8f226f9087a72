package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
)

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "invalid or expired token"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("stale")
	if _, err := c.FetchTasks(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestErrorBodyIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "task t9 has empty text"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.SyncTasks(nil, "d1")
	if err == nil || !strings.Contains(err.Error(), "task t9 has empty text") {
		t.Fatalf("err = %v, want the server's error message", err)
	}
}

func TestTokenSwapDuringInFlightRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.TasksResponse{Success: true})
	}))
	defer srv.Close()

	// A forced logout swaps the token out while cron- and debounce-driven
	// requests are in flight; both paths must be safe together.
	c := New(srv.URL)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.SetToken(fmt.Sprintf("token-%d", i))
		}(i)
		go func() {
			defer wg.Done()
			if _, err := c.FetchTasks(); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestSyncTasksRequestShape(t *testing.T) {
	var gotAuth string
	var gotBody dto.SyncTasksRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(dto.SyncTasksResponse{Success: true, SyncTime: 42})
	}))
	defer srv.Close()

	c := New(srv.URL + "/") // trailing slash is tolerated
	c.SetToken("tok")
	resp, err := c.SyncTasks([]models.Task{{ID: "t1", Text: "x"}}, "device-9")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.DeviceID != "device-9" || len(gotBody.Tasks) != 1 {
		t.Errorf("body = %+v", gotBody)
	}
	if resp.SyncTime != 42 {
		t.Errorf("syncTime = %d", resp.SyncTime)
	}
}
