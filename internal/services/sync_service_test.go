package services

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/smarttodo/sync/internal/database"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClock hands out strictly increasing epoch-millisecond values so
// tests can pin down exactly which clock stamped which row.
type fakeClock struct {
	ms int64
}

func (c *fakeClock) now() int64 {
	c.ms++
	return c.ms
}

func newSyncTestService(t *testing.T) (*SyncService, *fakeClock, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clk := &fakeClock{ms: 1_000_000}
	svc := NewSyncService(db)
	svc.now = clk.now
	return svc, clk, db
}

func newTask(id, text string, updatedAt int64) models.Task {
	return models.Task{
		ID:        id,
		Text:      text,
		Priority:  models.PriorityMedium,
		Category:  models.CategoryPersonal,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func taskByID(t *testing.T, tasks []models.Task, id string) *models.Task {
	t.Helper()
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	t.Fatalf("task %s not in result", id)
	return nil
}

func TestSyncTasksCreatesUnknownTasks(t *testing.T) {
	svc, clk, _ := newSyncTestService(t)
	userID := uuid.New()

	base := clk.ms
	res, err := svc.SyncTasks(userID, []models.Task{
		newTask("t1", "buy milk", 500),
		newTask("t2", "call dentist", 600),
	}, "device-a")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if res.Created != 2 || res.Updated != 0 {
		t.Fatalf("created=%d updated=%d, want 2/0", res.Created, res.Updated)
	}
	if len(res.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(res.Tasks))
	}

	t1 := taskByID(t, res.Tasks, "t1")
	if t1.CreatedAt != 500 {
		t.Errorf("createdAt = %d, want claimed 500", t1.CreatedAt)
	}
	if t1.UpdatedAt <= base {
		t.Errorf("updatedAt = %d, want server-stamped value after %d", t1.UpdatedAt, base)
	}
	if res.SyncTime <= base {
		t.Errorf("syncTime = %d, want value after %d", res.SyncTime, base)
	}
}

func TestSyncTasksIsIdempotent(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	userID := uuid.New()

	first, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "buy milk", 500)}, "device-a")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Re-pushing exactly what the server returned must change nothing:
	// claimed updatedAt equals stored, and "newer" is strictly greater.
	second, err := svc.SyncTasks(userID, first.Tasks, "device-a")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Created != 0 || second.Updated != 0 {
		t.Fatalf("created=%d updated=%d after re-push, want 0/0", second.Created, second.Updated)
	}

	before := taskByID(t, first.Tasks, "t1")
	after := taskByID(t, second.Tasks, "t1")
	if after.UpdatedAt != before.UpdatedAt {
		t.Errorf("updatedAt moved from %d to %d on a no-op push", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestSyncTasksLastWriterWins(t *testing.T) {
	svc, clk, _ := newSyncTestService(t)
	userID := uuid.New()

	res, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "draft report", 500)}, "device-a")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	stored := taskByID(t, res.Tasks, "t1")

	// A copy claiming a newer updatedAt overwrites, and the stored
	// stamp comes from the server clock, not the claim.
	newer := newTask("t1", "draft report v2", stored.UpdatedAt+10_000_000)
	newer.Completed = true
	beforeWrite := clk.ms
	res, err = svc.SyncTasks(userID, []models.Task{newer}, "device-b")
	if err != nil {
		t.Fatalf("newer push: %v", err)
	}
	if res.Updated != 1 || res.Created != 0 {
		t.Fatalf("created=%d updated=%d, want 0/1", res.Created, res.Updated)
	}
	got := taskByID(t, res.Tasks, "t1")
	if got.Text != "draft report v2" || !got.Completed {
		t.Fatalf("newer write not applied: %+v", got)
	}
	if got.UpdatedAt == newer.UpdatedAt || got.UpdatedAt <= beforeWrite {
		t.Errorf("updatedAt = %d, want server clock value, not the claimed %d", got.UpdatedAt, newer.UpdatedAt)
	}

	// A copy claiming an older updatedAt is dropped without a trace.
	stale := newTask("t1", "draft report STALE", got.UpdatedAt-1)
	res, err = svc.SyncTasks(userID, []models.Task{stale}, "device-a")
	if err != nil {
		t.Fatalf("stale push: %v", err)
	}
	if res.Updated != 0 || res.Created != 0 {
		t.Fatalf("created=%d updated=%d for stale push, want 0/0", res.Created, res.Updated)
	}
	got = taskByID(t, res.Tasks, "t1")
	if got.Text != "draft report v2" {
		t.Errorf("stale write applied: text = %q", got.Text)
	}
}

func TestTwoDevicesConvergeOnCompletion(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	userID := uuid.New()

	// Device A creates the task and syncs.
	resA, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "water plants", 100)}, "device-a")
	if err != nil {
		t.Fatalf("device a seed: %v", err)
	}
	copyA := *taskByID(t, resA.Tasks, "t1")

	// Device B pulls, completes the task, and syncs.
	pulled, err := svc.ListTasks(userID)
	if err != nil {
		t.Fatalf("device b pull: %v", err)
	}
	copyB := *taskByID(t, pulled, "t1")
	copyB.Completed = true
	copyB.UpdatedAt += 50 // local edit stamped after the pulled value
	if _, err := svc.SyncTasks(userID, []models.Task{copyB}, "device-b"); err != nil {
		t.Fatalf("device b push: %v", err)
	}

	// Device A re-pushes its stale incomplete copy; completion sticks.
	resA, err = svc.SyncTasks(userID, []models.Task{copyA}, "device-a")
	if err != nil {
		t.Fatalf("device a re-push: %v", err)
	}
	if got := taskByID(t, resA.Tasks, "t1"); !got.Completed {
		t.Fatalf("stale re-push undid the completion")
	}
}

func TestDeleteTaskTombstones(t *testing.T) {
	svc, _, db := newSyncTestService(t)
	userID := uuid.New()

	if _, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "old chore", 100)}, "device-a"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.DeleteTask(userID, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tasks, err := svc.ListTasks(userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("deleted task still listed: %+v", tasks)
	}

	// The row itself survives as a tombstone.
	var stored models.Task
	if err := db.Where("id = ? AND user_id = ?", "t1", userID).First(&stored).Error; err != nil {
		t.Fatalf("tombstone row gone: %v", err)
	}
	if !stored.Deleted {
		t.Fatal("stored row not flagged deleted")
	}
}

func TestTombstoneBeatsAnyRePush(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	userID := uuid.New()

	if _, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "old chore", 100)}, "device-a"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.DeleteTask(userID, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// No claimed updatedAt can resurrect it, whether it predates the
	// tombstone or postdates it by centuries.
	for _, claimed := range []int64{100, 1 << 60} {
		revived := newTask("t1", "old chore", claimed)
		res, err := svc.SyncTasks(userID, []models.Task{revived}, "device-b")
		if err != nil {
			t.Fatalf("re-push (claimed %d): %v", claimed, err)
		}
		if res.Created != 0 || res.Updated != 0 {
			t.Fatalf("created=%d updated=%d for claimed %d, tombstone should absorb the push", res.Created, res.Updated, claimed)
		}
		if len(res.Tasks) != 0 {
			t.Fatalf("deleted task resurrected by claimed %d: %+v", claimed, res.Tasks)
		}
	}
}

func TestDeleteUnknownTaskIsNoop(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	if err := svc.DeleteTask(uuid.New(), "never-existed"); err != nil {
		t.Fatalf("delete of unknown id: %v", err)
	}
}

func TestSyncBatchIsAtomic(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	userID := uuid.New()

	_, err := svc.SyncTasks(userID, []models.Task{
		newTask("t1", "fine", 100),
		newTask("t2", "   ", 100), // empty text fails validation
	}, "device-a")
	if !errors.Is(err, ErrTaskInvalid) {
		t.Fatalf("err = %v, want ErrTaskInvalid", err)
	}

	// The valid first task must have been rolled back with the batch.
	tasks, err := svc.ListTasks(userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("partial batch persisted: %+v", tasks)
	}
}

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name    string
		task    models.Task
		wantErr bool
	}{
		{"missing id", models.Task{Text: "x"}, true},
		{"empty text", models.Task{ID: "a", Text: " "}, true},
		{"bad priority", models.Task{ID: "a", Text: "x", Priority: "urgent"}, true},
		{"bad category", models.Task{ID: "a", Text: "x", Category: "misc"}, true},
		{"bad recurrence", models.Task{ID: "a", Text: "x", Recurring: "yearly"}, true},
		{"valid", models.Task{ID: "a", Text: "x", Priority: "high", Category: "work"}, false},
		{"defaults filled", models.Task{ID: "a", Text: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTask(&tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrTaskInvalid) {
				t.Fatalf("error %v does not wrap ErrTaskInvalid", err)
			}
			if !tt.wantErr && tt.task.Priority == "" {
				t.Error("empty priority not defaulted")
			}
			if !tt.wantErr && tt.task.Category == "" {
				t.Error("empty category not defaulted")
			}
		})
	}
}

func TestTasksAreScopedPerUser(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	alice, bob := uuid.New(), uuid.New()

	if _, err := svc.SyncTasks(alice, []models.Task{newTask("t1", "alice's task", 100)}, "d1"); err != nil {
		t.Fatalf("alice sync: %v", err)
	}
	if _, err := svc.SyncTasks(bob, []models.Task{newTask("t1", "bob's task", 100)}, "d2"); err != nil {
		t.Fatalf("bob sync: %v", err)
	}

	aliceTasks, err := svc.ListTasks(alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliceTasks) != 1 || aliceTasks[0].Text != "alice's task" {
		t.Fatalf("alice sees %+v", aliceTasks)
	}

	// Deleting bob's copy of the shared id leaves alice's alone.
	if err := svc.DeleteTask(bob, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	aliceTasks, _ = svc.ListTasks(alice)
	if len(aliceTasks) != 1 {
		t.Fatal("alice's task vanished with bob's delete")
	}
}

func TestSyncWritesSyncLog(t *testing.T) {
	svc, _, db := newSyncTestService(t)
	userID := uuid.New()

	if _, err := svc.SyncTasks(userID, []models.Task{newTask("t1", "x", 100)}, "device-a"); err != nil {
		t.Fatalf("sync: %v", err)
	}

	var logs []models.SyncLog
	if err := db.Where("user_id = ?", userID).Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 || logs[0].DeviceID != "device-a" || logs[0].Action != models.SyncActionTasks {
		t.Fatalf("unexpected sync log: %+v", logs)
	}
}

func TestFullSyncRoundTrip(t *testing.T) {
	svc, _, _ := newSyncTestService(t)
	userID := uuid.New()

	req := &dto.FullSyncRequest{
		Tasks:   []models.Task{newTask("t1", "pack bags", 100)},
		Profile: &models.Profile{Name: "Ada", Occupation: "engineer"},
		Memories: map[string][]dto.MemoryItem{
			"preferences": {{Content: "prefers mornings", Timestamp: 42}},
		},
		Settings: json.RawMessage(`{"theme":"dark"}`),
		DeviceID: "device-a",
	}
	data, syncTime, err := svc.FullSync(userID, req)
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if syncTime == 0 {
		t.Error("syncTime not set")
	}
	if len(data.Tasks) != 1 || data.Tasks[0].ID != "t1" {
		t.Fatalf("tasks = %+v", data.Tasks)
	}
	if data.Profile.Name != "Ada" || data.Profile.Occupation != "engineer" {
		t.Fatalf("profile = %+v", data.Profile)
	}
	items := data.Memories["preferences"]
	if len(items) != 1 || items[0].Content != "prefers mornings" || items[0].Timestamp != 42 {
		t.Fatalf("memories = %+v", data.Memories)
	}
	var settings map[string]string
	if err := json.Unmarshal(data.Settings, &settings); err != nil || settings["theme"] != "dark" {
		t.Fatalf("settings = %s (%v)", data.Settings, err)
	}

	// A second full sync replaces memories wholesale.
	req.Memories = map[string][]dto.MemoryItem{
		"goals": {{Content: "ship the release", Timestamp: 43}},
	}
	data, _, err = svc.FullSync(userID, req)
	if err != nil {
		t.Fatalf("second full sync: %v", err)
	}
	if _, ok := data.Memories["preferences"]; ok {
		t.Fatal("old memory category survived a replace")
	}
	if len(data.Memories["goals"]) != 1 {
		t.Fatalf("memories = %+v", data.Memories)
	}
}
