package store

import (
	"path/filepath"
	"testing"

	"github.com/smarttodo/sync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)

	task := &models.Task{
		ID:        "t1",
		Text:      "buy milk",
		Priority:  models.PriorityHigh,
		Category:  models.CategoryPersonal,
		CreatedAt: 100,
		UpdatedAt: 100,
	}
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetTask("t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Text != "buy milk" || got.Priority != models.PriorityHigh {
		t.Fatalf("got %+v", got)
	}

	got.Completed = true
	got.UpdatedAt = 200
	if err := s.SaveTask(got); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.GetTask("t1")
	if !got.Completed || got.UpdatedAt != 200 {
		t.Fatalf("overwrite lost: %+v", got)
	}

	if err := s.DeleteTask("t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetTask("t1")
	if err != nil || got != nil {
		t.Fatalf("after delete: task=%+v err=%v", got, err)
	}
}

func TestListTasksNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"old", "mid", "new"} {
		ts := int64((i + 1) * 100)
		if err := s.SaveTask(&models.Task{ID: id, Text: id, CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != "new" || tasks[2].ID != "old" {
		t.Fatalf("order wrong: %+v", tasks)
	}
}

func TestReplaceAllDiscardsLocalState(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveTask(&models.Task{ID: "local-only", Text: "unpushed"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	err := s.ReplaceAll([]models.Task{
		{ID: "s1", Text: "from server", CreatedAt: 10, UpdatedAt: 10},
		{ID: "s2", Text: "also from server", CreatedAt: 20, UpdatedAt: 20},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	tasks, _ := s.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if got, _ := s.GetTask("local-only"); got != nil {
		t.Fatal("local-only task survived a replace")
	}
}

func TestKVRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if v, err := s.Get("missing"); err != nil || v != "" {
		t.Fatalf("missing key: v=%q err=%v", v, err)
	}
	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _ := s.Get("k"); v != "v2" {
		t.Fatalf("got %q, want v2", v)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v, _ := s.Get("k"); v != "" {
		t.Fatalf("deleted key still returns %q", v)
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	s := newTestStore(t)
	first, err := s.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if first == "" {
		t.Fatal("empty device id")
	}
	second, _ := s.DeviceID()
	if second != first {
		t.Fatalf("device id changed: %q then %q", first, second)
	}
}

func TestLastSyncTime(t *testing.T) {
	s := newTestStore(t)
	if ms, err := s.LastSyncTime(); err != nil || ms != 0 {
		t.Fatalf("never synced: ms=%d err=%v", ms, err)
	}
	if err := s.SetLastSyncTime(123456); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ms, _ := s.LastSyncTime(); ms != 123456 {
		t.Fatalf("got %d, want 123456", ms)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if raw, err := s.LoadSession(); err != nil || raw != "" {
		t.Fatalf("logged out: raw=%q err=%v", raw, err)
	}
	if err := s.SaveSession(`{"access_token":"abc"}`); err != nil {
		t.Fatalf("save: %v", err)
	}
	if raw, _ := s.LoadSession(); raw != `{"access_token":"abc"}` {
		t.Fatalf("got %q", raw)
	}
	if err := s.ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if raw, _ := s.LoadSession(); raw != "" {
		t.Fatalf("session survived clear: %q", raw)
	}
}
