package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleSequences handles GET /sequences — list reasoning sequences.
func (h *Handlers) HandleSequences(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	activeOnly := parseBoolParam(r, "active_only")

	input := ops.ListInput{
		ProjectName: ptrString(project),
		ActiveOnly:  activeOnly,
		Limit:       parseIntParam(r, "limit", 20),
		Offset:      parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "sequences", SequencesPageData{
		PageData: PageData{
			Title:   "Sequences",
			Version: h.renderer.version,
			Nav:     "sequences",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Project:    project,
		ActiveOnly: activeOnly,
	})
}

// HandleSequenceDetail handles GET /sequences/{id} — view one sequence with
// its rendered transcript and branch list.
func (h *Handlers) HandleSequenceDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("sequence id must be an integer"))
		return
	}

	seq, err := ops.Show(r.Context(), h.db, ops.ShowInput{SequenceID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	branches, err := ops.Branches(r.Context(), h.db, ops.BranchesInput{SequenceID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "sequence", SequencePageData{
		PageData: PageData{
			Title:   seq.Name,
			Version: h.renderer.version,
			Nav:     "sequences",
		},
		Sequence:       seq,
		Branches:       branches.Items,
		TranscriptHTML: renderMarkdown(seq.Transcript),
	})
}

// HandleMemories handles GET /memories — list or search stored memories.
func (h *Handlers) HandleMemories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	project := r.URL.Query().Get("project")
	memType := r.URL.Query().Get("memory_type")

	input := ops.MemoriesInput{
		Query:       query,
		ProjectName: ptrString(project),
		MemoryType:  ptrString(memType),
		Limit:       parseIntParam(r, "limit", 20),
		Offset:      parseIntParam(r, "offset", 0),
	}

	result, err := ops.Memories(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := MemoriesPageData{
		PageData: PageData{
			Title:   "Memories",
			Version: h.renderer.version,
			Nav:     "memories",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Query:      query,
		Project:    project,
		MemoryType: memType,
		HasQuery:   query != "",
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "memories", "memory-results", data)
		return
	}

	h.renderer.renderPage(w, r, "memories", data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
