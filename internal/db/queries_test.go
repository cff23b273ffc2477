package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/memory"
	"github.com/hpungsan/strand/internal/thought"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// newTestSequence inserts a project, session, and sequence, returning the sequence.
func newTestSequence(t *testing.T, database *sql.DB, goal string) *thought.Sequence {
	t.Helper()
	ctx := context.Background()

	projectID, err := GetOrCreateProject(ctx, database, "test-project")
	if err != nil {
		t.Fatalf("GetOrCreateProject() error = %v", err)
	}
	sessionID, err := GetOrCreateSession(ctx, database, projectID, "session-2026-08-29")
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	now := time.Now().Unix()
	seq := &thought.Sequence{
		ProjectID: projectID,
		SessionID: sessionID,
		Name:      "test sequence",
		Goal:      goal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := InsertSequence(ctx, database, seq); err != nil {
		t.Fatalf("InsertSequence() error = %v", err)
	}
	return seq
}

func insertTestThought(t *testing.T, database *sql.DB, seqID int64, number int, typ thought.Type, content string) *thought.Thought {
	t.Helper()
	th := &thought.Thought{
		SequenceID:    seqID,
		Number:        number,
		TotalEstimate: number,
		Content:       content,
		Type:          typ,
		Confidence:    0.7,
		NextNeeded:    true,
		CreatedAt:     time.Now().Unix(),
	}
	if err := InsertThought(context.Background(), database, th); err != nil {
		t.Fatalf("InsertThought() error = %v", err)
	}
	return th
}

func TestGetOrCreateProject_Idempotent(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	id1, err := GetOrCreateProject(ctx, database, "demo")
	if err != nil {
		t.Fatalf("GetOrCreateProject() error = %v", err)
	}
	id2, err := GetOrCreateProject(ctx, database, "demo")
	if err != nil {
		t.Fatalf("GetOrCreateProject() second call error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("project ids differ: %d vs %d", id1, id2)
	}

	name, err := GetProjectName(ctx, database, id1)
	if err != nil {
		t.Fatalf("GetProjectName() error = %v", err)
	}
	if name != "demo" {
		t.Errorf("name = %q, want %q", name, "demo")
	}
}

func TestGetOrCreateProject_ConcurrentReturnsMatchingID(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	// Occupy lower rowids so a stale connection-level last insert id would
	// not coincide with the raced row's id.
	for i := 0; i < 3; i++ {
		if _, err := GetOrCreateProject(ctx, database, fmt.Sprintf("seed-%d", i)); err != nil {
			t.Fatalf("GetOrCreateProject() seed error = %v", err)
		}
	}

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("raced-%d", i)
		ids := make([]int64, 2)
		errs := make([]error, 2)

		var wg sync.WaitGroup
		for j := range ids {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				ids[j], errs[j] = GetOrCreateProject(ctx, database, name)
			}(j)
		}
		wg.Wait()

		for j, err := range errs {
			if err != nil {
				t.Fatalf("GetOrCreateProject(%q) caller %d error = %v", name, j, err)
			}
		}

		var want int64
		if err := database.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, name).Scan(&want); err != nil {
			t.Fatalf("lookup of %q failed: %v", name, err)
		}
		for j, id := range ids {
			if id != want {
				t.Fatalf("GetOrCreateProject(%q) caller %d returned id %d, actual id is %d", name, j, id, want)
			}
		}
	}
}

func TestGetOrCreateSession_ConcurrentReturnsMatchingID(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	projectID, err := GetOrCreateProject(ctx, database, "demo")
	if err != nil {
		t.Fatalf("GetOrCreateProject() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := GetOrCreateSession(ctx, database, projectID, fmt.Sprintf("seed-%d", i)); err != nil {
			t.Fatalf("GetOrCreateSession() seed error = %v", err)
		}
	}

	name := "session-2026-08-29"
	ids := make([]int64, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for j := range ids {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			ids[j], errs[j] = GetOrCreateSession(ctx, database, projectID, name)
		}(j)
	}
	wg.Wait()

	for j, err := range errs {
		if err != nil {
			t.Fatalf("GetOrCreateSession() caller %d error = %v", j, err)
		}
	}

	var want int64
	if err := database.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE project_id = ? AND name = ?`,
		projectID, name,
	).Scan(&want); err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	for j, id := range ids {
		if id != want {
			t.Fatalf("GetOrCreateSession() caller %d returned id %d, actual id is %d", j, id, want)
		}
	}
}

func TestGetOrCreateSession_ScopedToProject(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p1, _ := GetOrCreateProject(ctx, database, "one")
	p2, _ := GetOrCreateProject(ctx, database, "two")

	s1, err := GetOrCreateSession(ctx, database, p1, "session-2026-08-29")
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	s1again, err := GetOrCreateSession(ctx, database, p1, "session-2026-08-29")
	if err != nil {
		t.Fatalf("GetOrCreateSession() second call error = %v", err)
	}
	if s1 != s1again {
		t.Errorf("same project+name should reuse session: %d vs %d", s1, s1again)
	}

	s2, err := GetOrCreateSession(ctx, database, p2, "session-2026-08-29")
	if err != nil {
		t.Fatalf("GetOrCreateSession() other project error = %v", err)
	}
	if s1 == s2 {
		t.Error("sessions with the same name in different projects should be distinct")
	}
}

func TestGetSequenceWithCount(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "design auth flow")

	got, count, err := GetSequenceWithCount(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("GetSequenceWithCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for empty sequence", count)
	}
	if got.Goal != "design auth flow" {
		t.Errorf("Goal = %q", got.Goal)
	}
	if got.IsComplete {
		t.Error("new sequence should not be complete")
	}

	insertTestThought(t, database, seq.ID, 1, thought.TypeObservation, "a")
	insertTestThought(t, database, seq.ID, 2, thought.TypeReasoning, "b")

	_, count, err = GetSequenceWithCount(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("GetSequenceWithCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestGetSequenceWithCount_NotFound(t *testing.T) {
	database := testDB(t)

	_, _, err := GetSequenceWithCount(context.Background(), database, 9999)
	if !errors.Is(err, errors.ErrSequenceNotFound) {
		t.Errorf("error = %v, want SEQUENCE_NOT_FOUND", err)
	}
}

func TestCompleteSequence_ConditionalUpdate(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal")

	won, err := CompleteSequence(ctx, database, seq.ID, "Therefore done.")
	if err != nil {
		t.Fatalf("CompleteSequence() error = %v", err)
	}
	if !won {
		t.Error("first completion should win")
	}

	// Second completion must observe the flag already set.
	won, err = CompleteSequence(ctx, database, seq.ID, "other summary")
	if err != nil {
		t.Fatalf("CompleteSequence() second call error = %v", err)
	}
	if won {
		t.Error("second completion should not win; is_complete is monotonic")
	}

	got, _, err := GetSequenceWithCount(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("GetSequenceWithCount() error = %v", err)
	}
	if !got.IsComplete {
		t.Error("sequence should be complete")
	}
	if got.CompletionSummary == nil || *got.CompletionSummary != "Therefore done." {
		t.Errorf("CompletionSummary = %v, want the first winner's summary", got.CompletionSummary)
	}
}

func TestListThoughts_OrderedByNumber(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal")
	insertTestThought(t, database, seq.ID, 2, thought.TypeReasoning, "second")
	insertTestThought(t, database, seq.ID, 1, thought.TypeObservation, "first")

	thoughts, err := ListThoughts(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("ListThoughts() error = %v", err)
	}
	if len(thoughts) != 2 {
		t.Fatalf("len = %d, want 2", len(thoughts))
	}
	if thoughts[0].Number != 1 || thoughts[1].Number != 2 {
		t.Errorf("thoughts not ordered by number: %d, %d", thoughts[0].Number, thoughts[1].Number)
	}
}

func TestLatestThought(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal")

	latest, err := LatestThought(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("LatestThought() error = %v", err)
	}
	if latest != nil {
		t.Error("empty sequence should have no latest thought")
	}

	insertTestThought(t, database, seq.ID, 1, thought.TypeObservation, "first")
	want := insertTestThought(t, database, seq.ID, 2, thought.TypeReasoning, "second")

	latest, err = LatestThought(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("LatestThought() error = %v", err)
	}
	if latest == nil || latest.ID != want.ID {
		t.Errorf("latest = %+v, want id %d", latest, want.ID)
	}
}

func TestInsertThought_RoundTripsNullables(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal")
	origin := insertTestThought(t, database, seq.ID, 1, thought.TypeObservation, "origin")

	th := &thought.Thought{
		SequenceID:          seq.ID,
		Number:              2,
		TotalEstimate:       2,
		Content:             "forked",
		Type:                thought.TypeHypothesis,
		Confidence:          0.7,
		NextNeeded:          true,
		BranchIntent:        true,
		BranchFromThoughtID: &origin.ID,
		BranchID:            "01TESTBRANCH",
		Metadata:            map[string]any{"k": "v"},
		CreatedAt:           time.Now().Unix(),
	}
	if err := InsertThought(ctx, database, th); err != nil {
		t.Fatalf("InsertThought() error = %v", err)
	}

	got, err := GetThought(ctx, database, seq.ID, th.ID)
	if err != nil {
		t.Fatalf("GetThought() error = %v", err)
	}
	if !got.BranchIntent {
		t.Error("BranchIntent lost in round trip")
	}
	if got.BranchFromThoughtID == nil || *got.BranchFromThoughtID != origin.ID {
		t.Errorf("BranchFromThoughtID = %v, want %d", got.BranchFromThoughtID, origin.ID)
	}
	if got.BranchID != "01TESTBRANCH" {
		t.Errorf("BranchID = %q", got.BranchID)
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestBranches_InsertAndNames(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal")
	origin := insertTestThought(t, database, seq.ID, 1, thought.TypeObservation, "origin")

	b := &thought.Branch{
		SequenceID:    seq.ID,
		BranchID:      "01BR",
		Name:          "Alternative 2",
		FromThoughtID: origin.ID,
		Rationale:     "explore sessions",
		IsActive:      true,
		CreatedAt:     time.Now().Unix(),
	}
	if err := InsertBranch(ctx, database, b); err != nil {
		t.Fatalf("InsertBranch() error = %v", err)
	}
	if b.ID == 0 {
		t.Error("InsertBranch should set ID")
	}

	names, err := BranchNames(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("BranchNames() error = %v", err)
	}
	if names["01BR"] != "Alternative 2" {
		t.Errorf("names = %v", names)
	}

	branches, err := ListBranches(ctx, database, seq.ID)
	if err != nil {
		t.Fatalf("ListBranches() error = %v", err)
	}
	if len(branches) != 1 || branches[0].FromThoughtID != origin.ID {
		t.Errorf("branches = %+v", branches)
	}
}

func TestListSequences_Filters(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	seq := newTestSequence(t, database, "goal one")
	newTestSequence(t, database, "goal two")

	if _, err := CompleteSequence(ctx, database, seq.ID, "done"); err != nil {
		t.Fatalf("CompleteSequence() error = %v", err)
	}

	project := "test-project"
	items, total, err := ListSequences(ctx, database, SequenceFilters{ProjectName: &project}, 20, 0)
	if err != nil {
		t.Fatalf("ListSequences() error = %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d, want 2/2", total, len(items))
	}

	items, total, err = ListSequences(ctx, database, SequenceFilters{ProjectName: &project, ActiveOnly: true}, 20, 0)
	if err != nil {
		t.Fatalf("ListSequences() active-only error = %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Goal != "goal two" {
		t.Fatalf("active-only: total = %d, items = %+v", total, items)
	}
}

func TestMemories_InsertListSearch(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	m := &memory.Memory{
		ID:          "01MEM",
		ProjectName: "demo",
		Type:        memory.KindDecision,
		Content:     "# Decision: use JWT\nTherefore use JWT.",
		Importance:  memory.DecisionImportance,
		Metadata:    map[string]any{"sequence_id": float64(1)},
		CreatedAt:   time.Now().Unix(),
	}
	if err := InsertMemory(ctx, database, m); err != nil {
		t.Fatalf("InsertMemory() error = %v", err)
	}

	got, err := GetMemory(ctx, database, "01MEM")
	if err != nil {
		t.Fatalf("GetMemory() error = %v", err)
	}
	if got.Type != memory.KindDecision || got.Importance != memory.DecisionImportance {
		t.Errorf("round trip mismatch: %+v", got)
	}

	project := "demo"
	items, total, err := ListMemories(ctx, database, MemoryFilters{ProjectName: &project}, 20, 0)
	if err != nil {
		t.Fatalf("ListMemories() error = %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, len = %d", total, len(items))
	}

	items, _, err = SearchMemories(ctx, database, "JWT", MemoryFilters{}, 20, 0)
	if err != nil {
		t.Fatalf("SearchMemories() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("search should match, got %d items", len(items))
	}

	items, _, err = SearchMemories(ctx, database, "100%", MemoryFilters{}, 20, 0)
	if err != nil {
		t.Fatalf("SearchMemories() wildcard error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("LIKE wildcards must be escaped; got %d items", len(items))
	}
}

func TestInsightJobs_Lifecycle(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	job := &InsightJob{
		ID:        "01JOB",
		TaskType:  "sequence_insights",
		SourceIDs: []int64{1},
		Payload:   map[string]any{"goal": "g"},
		Priority:  1,
		CreatedAt: time.Now().Unix(),
	}
	if err := EnqueueInsightJob(ctx, database, job); err != nil {
		t.Fatalf("EnqueueInsightJob() error = %v", err)
	}

	claimed, err := ClaimNextJob(ctx, database)
	if err != nil {
		t.Fatalf("ClaimNextJob() error = %v", err)
	}
	if claimed == nil || claimed.ID != "01JOB" {
		t.Fatalf("claimed = %+v, want job 01JOB", claimed)
	}
	if claimed.Status != JobStatusRunning {
		t.Errorf("Status = %q, want running", claimed.Status)
	}
	if len(claimed.SourceIDs) != 1 || claimed.SourceIDs[0] != 1 {
		t.Errorf("SourceIDs = %v", claimed.SourceIDs)
	}

	// Queue is drained; nothing left to claim.
	next, err := ClaimNextJob(ctx, database)
	if err != nil {
		t.Fatalf("ClaimNextJob() empty error = %v", err)
	}
	if next != nil {
		t.Errorf("expected empty queue, got %+v", next)
	}

	if err := MarkJobDone(ctx, database, claimed.ID); err != nil {
		t.Fatalf("MarkJobDone() error = %v", err)
	}

	counts, err := CountJobsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountJobsByStatus() error = %v", err)
	}
	if counts[JobStatusDone] != 1 {
		t.Errorf("counts = %v, want one done", counts)
	}
}

func TestInsightJobs_PriorityOrder(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	low := &InsightJob{ID: "01LOW", TaskType: "t", SourceIDs: []int64{1}, Priority: 0, CreatedAt: 100}
	high := &InsightJob{ID: "01HIGH", TaskType: "t", SourceIDs: []int64{2}, Priority: 5, CreatedAt: 200}
	if err := EnqueueInsightJob(ctx, database, low); err != nil {
		t.Fatalf("enqueue low error = %v", err)
	}
	if err := EnqueueInsightJob(ctx, database, high); err != nil {
		t.Fatalf("enqueue high error = %v", err)
	}

	claimed, err := ClaimNextJob(ctx, database)
	if err != nil {
		t.Fatalf("ClaimNextJob() error = %v", err)
	}
	if claimed == nil || claimed.ID != "01HIGH" {
		t.Errorf("claimed = %+v, want high-priority job first", claimed)
	}
}
