package ops

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/memory"
	"github.com/hpungsan/strand/internal/thought"
)

// insightTaskType names the analysis queued for every concluded sequence.
const insightTaskType = "sequence_insights"

// finalize terminates a sequence: the conditional completion write lands
// first, then the decision memory and insight job follow as independent
// best-effort side effects. Their failures are logged and swallowed; they
// must never unwind a completion that already committed.
func finalize(ctx context.Context, database *sql.DB, seq *thought.Sequence, concludingContent string) error {
	won, err := db.CompleteSequence(ctx, database, seq.ID, concludingContent)
	if err != nil {
		return err
	}
	if !won {
		// A concurrent finalize already flipped the flag; its side effects
		// are in flight, so this call adds nothing.
		return nil
	}

	fileDecision(ctx, database, seq, concludingContent)
	enqueueInsights(ctx, database, seq)
	return nil
}

// fileDecision renders the full thought chain into a decision document and
// hands it to the memory store. Project resolution is required to file the
// decision under the right project; when it fails, the anomaly is logged and
// decision creation is skipped. The sequence still completes.
func fileDecision(ctx context.Context, database *sql.DB, seq *thought.Sequence, summary string) {
	projectName, err := db.GetProjectName(ctx, database, seq.ProjectID)
	if err != nil {
		log.Printf("strand: skipping decision memory for sequence %d: cannot resolve project: %v", seq.ID, err)
		return
	}

	thoughts, err := db.ListThoughts(ctx, database, seq.ID)
	if err != nil {
		log.Printf("strand: skipping decision memory for sequence %d: cannot load thoughts: %v", seq.ID, err)
		return
	}
	names, err := db.BranchNames(ctx, database, seq.ID)
	if err != nil {
		log.Printf("strand: skipping decision memory for sequence %d: cannot load branches: %v", seq.ID, err)
		return
	}

	id, err := generateULID()
	if err != nil {
		log.Printf("strand: skipping decision memory for sequence %d: %v", seq.ID, err)
		return
	}

	mem := &memory.Memory{
		ID:          id,
		ProjectName: projectName,
		Type:        memory.KindDecision,
		Content:     thought.DecisionDocument(seq.Goal, thoughts, names, summary),
		Importance:  memory.DecisionImportance,
		Metadata: map[string]any{
			"sequence_id": seq.ID,
			"goal":        seq.Goal,
		},
		CreatedAt: time.Now().Unix(),
	}
	if err := db.InsertMemory(ctx, database, mem); err != nil {
		log.Printf("strand: decision memory write failed for sequence %d: %v", seq.ID, err)
	}
}

// enqueueInsights files a fire-and-forget analysis job for the concluded
// sequence. Enqueue failures are logged and swallowed.
func enqueueInsights(ctx context.Context, database *sql.DB, seq *thought.Sequence) {
	id, err := generateULID()
	if err != nil {
		log.Printf("strand: skipping insight job for sequence %d: %v", seq.ID, err)
		return
	}

	job := &db.InsightJob{
		ID:        id,
		TaskType:  insightTaskType,
		SourceIDs: []int64{seq.ID},
		Payload: map[string]any{
			"goal": seq.Goal,
		},
		Priority:  1,
		CreatedAt: time.Now().Unix(),
	}
	if err := db.EnqueueInsightJob(ctx, database, job); err != nil {
		log.Printf("strand: insight enqueue failed for sequence %d: %v", seq.ID, err)
	}
}
