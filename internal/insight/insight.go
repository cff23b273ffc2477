package insight

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/memory"
	"github.com/hpungsan/strand/internal/thought"
)

// TaskSequenceInsights analyzes a concluded sequence and files the result as
// an insight memory.
const TaskSequenceInsights = "sequence_insights"

// Worker drains the insight job queue in the background. One worker per
// process is enough: jobs are claimed with a conditional update, so extra
// workers would only contend on the same rows.
type Worker struct {
	db  *sql.DB
	cfg *config.Config
}

// NewWorker creates a queue worker bound to the given database.
func NewWorker(database *sql.DB, cfg *config.Config) *Worker {
	return &Worker{db: database, cfg: cfg}
}

// Run polls for pending jobs until the context is canceled. Each tick drains
// the queue completely so a burst of conclusions does not back up behind the
// poll interval.
func (w *Worker) Run(ctx context.Context) {
	interval := time.Duration(w.cfg.InsightPollSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes pending jobs until the queue is empty or the context is
// canceled. Job failures are recorded on the job row and never stop the drain.
func (w *Worker) Drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := db.ClaimNextJob(ctx, w.db)
		if err != nil {
			log.Printf("strand: insight claim failed: %v", err)
			return
		}
		if job == nil {
			return
		}

		if err := w.process(ctx, job); err != nil {
			log.Printf("strand: insight job %s failed: %v", job.ID, err)
			if markErr := db.MarkJobFailed(ctx, w.db, job.ID, err); markErr != nil {
				log.Printf("strand: marking job %s failed: %v", job.ID, markErr)
			}
			continue
		}
		if err := db.MarkJobDone(ctx, w.db, job.ID); err != nil {
			log.Printf("strand: marking job %s done: %v", job.ID, err)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *db.InsightJob) error {
	switch job.TaskType {
	case TaskSequenceInsights:
		return w.sequenceInsights(ctx, job)
	default:
		return fmt.Errorf("unknown task type %q", job.TaskType)
	}
}

// sequenceInsights summarizes the shape of a concluded reasoning chain and
// stores the summary as an insight memory under the sequence's project.
func (w *Worker) sequenceInsights(ctx context.Context, job *db.InsightJob) error {
	if len(job.SourceIDs) == 0 {
		return fmt.Errorf("job %s has no source sequence", job.ID)
	}
	sequenceID := job.SourceIDs[0]

	seq, _, err := db.GetSequenceWithCount(ctx, w.db, sequenceID)
	if err != nil {
		return err
	}
	projectName, err := db.GetProjectName(ctx, w.db, seq.ProjectID)
	if err != nil {
		return err
	}
	thoughts, err := db.ListThoughts(ctx, w.db, seq.ID)
	if err != nil {
		return err
	}
	branches, err := db.ListBranches(ctx, w.db, seq.ID)
	if err != nil {
		return err
	}

	id := ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
	mem := &memory.Memory{
		ID:          id,
		ProjectName: projectName,
		Type:        memory.KindInsight,
		Content:     summarize(seq, thoughts, len(branches)),
		Importance:  memory.DefaultImportance,
		Metadata: map[string]any{
			"sequence_id": seq.ID,
			"job_id":      job.ID,
		},
		CreatedAt: time.Now().Unix(),
	}
	return db.InsertMemory(ctx, w.db, mem)
}

// summarize renders the insight document: how the chain was shaped, not what
// it decided. The decision itself already lives in the decision memory.
func summarize(seq *thought.Sequence, thoughts []*thought.Thought, branchCount int) string {
	typeCounts := make(map[thought.Type]int)
	revisions := 0
	var confidenceSum float64
	for _, t := range thoughts {
		typeCounts[t.Type]++
		if t.IsRevision {
			revisions++
		}
		confidenceSum += t.Confidence
	}

	var b strings.Builder
	b.WriteString("# Insights: ")
	b.WriteString(strings.TrimSpace(seq.Goal))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "- %d thoughts across %d branches\n", len(thoughts), branchCount+1)
	fmt.Fprintf(&b, "- %d revisions\n", revisions)
	if len(thoughts) > 0 {
		fmt.Fprintf(&b, "- mean confidence %.2f\n", confidenceSum/float64(len(thoughts)))
	}

	types := make([]string, 0, len(typeCounts))
	for _, typ := range []thought.Type{
		thought.TypeReasoning, thought.TypeConclusion, thought.TypeQuestion,
		thought.TypeHypothesis, thought.TypeObservation, thought.TypeAssumption,
		thought.TypeGeneral,
	} {
		if n := typeCounts[typ]; n > 0 {
			types = append(types, fmt.Sprintf("%s x%d", typ, n))
		}
	}
	if len(types) > 0 {
		b.WriteString("- types: ")
		b.WriteString(strings.Join(types, ", "))
		b.WriteString("\n")
	}

	if seq.CompletionSummary != nil {
		b.WriteString("\nConcluded: ")
		b.WriteString(strings.TrimSpace(*seq.CompletionSummary))
		b.WriteString("\n")
	}

	return b.String()
}
