package insight

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/ops"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// concludeSequence runs a short reasoning chain to completion, which enqueues
// one insight job as a side effect.
func concludeSequence(t *testing.T, database *sql.DB, cfg *config.Config, project string) int64 {
	t.Helper()
	ctx := context.Background()

	startOut, err := ops.Start(ctx, database, ops.StartInput{
		Goal:        "Pick a serialization format",
		ProjectName: project,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	steps := []ops.ThinkInput{
		{SequenceID: startOut.SequenceID, Content: "JSON is everywhere", ThoughtType: "observation"},
		{SequenceID: startOut.SequenceID, Content: "Protobuf needs a schema", ThoughtType: "observation"},
		{SequenceID: startOut.SequenceID, Content: "Use JSON.", ThoughtType: "conclusion"},
	}
	for _, in := range steps {
		if _, err := ops.Think(ctx, database, cfg, in); err != nil {
			t.Fatalf("Think failed: %v", err)
		}
	}
	return startOut.SequenceID
}

func TestDrainProcessesSequenceInsights(t *testing.T) {
	database := testDB(t)
	cfg := config.DefaultConfig()
	ctx := context.Background()

	concludeSequence(t, database, cfg, "formats")

	counts, err := db.CountJobsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountJobsByStatus failed: %v", err)
	}
	if counts[db.JobStatusPending] != 1 {
		t.Fatalf("pending jobs = %d, want 1", counts[db.JobStatusPending])
	}

	NewWorker(database, cfg).Drain(ctx)

	counts, err = db.CountJobsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountJobsByStatus failed: %v", err)
	}
	if counts[db.JobStatusPending] != 0 || counts[db.JobStatusDone] != 1 {
		t.Fatalf("job counts after drain = %v", counts)
	}

	project := "formats"
	insightType := "insight"
	records, _, err := db.ListMemories(ctx, database, db.MemoryFilters{
		ProjectName: &project,
		Type:        &insightType,
	}, 10, 0)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("insight memories = %d, want 1", len(records))
	}
	content := records[0].Content
	if !strings.Contains(content, "# Insights: Pick a serialization format") {
		t.Errorf("insight missing goal header:\n%s", content)
	}
	if !strings.Contains(content, "3 thoughts") {
		t.Errorf("insight missing thought tally:\n%s", content)
	}
	if !strings.Contains(content, "Concluded: Use JSON.") {
		t.Errorf("insight missing conclusion:\n%s", content)
	}
}

func TestDrainEmptyQueueIsANoop(t *testing.T) {
	database := testDB(t)
	cfg := config.DefaultConfig()

	NewWorker(database, cfg).Drain(context.Background())

	counts, err := db.CountJobsByStatus(context.Background(), database)
	if err != nil {
		t.Fatalf("CountJobsByStatus failed: %v", err)
	}
	for status, n := range counts {
		if n != 0 {
			t.Errorf("unexpected %s jobs: %d", status, n)
		}
	}
}

func TestUnknownTaskTypeMarksJobFailed(t *testing.T) {
	database := testDB(t)
	cfg := config.DefaultConfig()
	ctx := context.Background()

	job := &db.InsightJob{
		ID:       "01TESTJOB0000000000000000X",
		TaskType: "not_a_real_task",
	}
	if err := db.EnqueueInsightJob(ctx, database, job); err != nil {
		t.Fatalf("EnqueueInsightJob failed: %v", err)
	}

	NewWorker(database, cfg).Drain(ctx)

	counts, err := db.CountJobsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountJobsByStatus failed: %v", err)
	}
	if counts[db.JobStatusFailed] != 1 {
		t.Errorf("failed jobs = %d, want 1", counts[db.JobStatusFailed])
	}
}

func TestSummaryCountsBranchesAndRevisions(t *testing.T) {
	database := testDB(t)
	cfg := config.DefaultConfig()
	ctx := context.Background()

	startOut, err := ops.Start(ctx, database, ops.StartInput{Goal: "branchy goal"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	seqID := startOut.SequenceID

	first, err := ops.Think(ctx, database, cfg, ops.ThinkInput{SequenceID: seqID, Content: "base"})
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if _, err := ops.Think(ctx, database, cfg, ops.ThinkInput{
		SequenceID:  seqID,
		Content:     "other road",
		ThoughtType: "alternative",
	}); err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if _, err := ops.Think(ctx, database, cfg, ops.ThinkInput{
		SequenceID:       seqID,
		Content:          "base, reworded",
		RevisesThoughtID: &first.ThoughtID,
	}); err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if _, err := ops.Think(ctx, database, cfg, ops.ThinkInput{
		SequenceID:  seqID,
		Content:     "Decision: take the other road",
		ThoughtType: "conclusion",
	}); err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	NewWorker(database, cfg).Drain(ctx)

	insightType := "insight"
	records, _, err := db.ListMemories(ctx, database, db.MemoryFilters{Type: &insightType}, 10, 0)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("insight memories = %d, want 1", len(records))
	}
	content := records[0].Content
	if !strings.Contains(content, "4 thoughts across 2 branches") {
		t.Errorf("branch tally wrong:\n%s", content)
	}
	if !strings.Contains(content, "1 revisions") {
		t.Errorf("revision tally wrong:\n%s", content)
	}
}
