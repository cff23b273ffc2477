package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var startToolDef = mcp.NewTool("think_start",
	mcp.WithDescription(
		"Begin a new reasoning sequence for a goal. Returns the sequence id to pass "+
			"to think_add. Use one sequence per problem; completed sequences are immutable.",
	),
	mcp.WithString("goal",
		mcp.Required(),
		mcp.Description("What this reasoning chain is trying to decide or figure out"),
	),
	mcp.WithString("project",
		mcp.Description("Project to file the sequence under (default: 'default')"),
	),
	mcp.WithString("description",
		mcp.Description("Optional longer context for the sequence"),
	),
)

var addToolDef = mcp.NewTool("think_add",
	mcp.WithDescription(
		"Append one thought to a reasoning sequence. Types like 'alternative' or 'fork' "+
			"branch off the latest thought; 'conclusion' (or concluding phrases such as "+
			"'therefore' and 'final answer') completes the sequence and files a decision "+
			"memory. Set revises_thought_id to refine an earlier thought in place.",
	),
	mcp.WithNumber("sequence_id",
		mcp.Required(),
		mcp.Description("Sequence to append to, from think_start"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The thought text"),
	),
	mcp.WithString("thought_type",
		mcp.Description(
			"reasoning, conclusion, question, hypothesis, observation, assumption, or a "+
				"branching label (alternative, branch, option, variant, fork). Unknown labels "+
				"are stored as 'general'",
		),
	),
	mcp.WithString("branch_name",
		mcp.Description("Human-readable name for the branch when branching, or the name of an existing branch to continue"),
	),
	mcp.WithNumber("confidence",
		mcp.Description("Confidence in this thought, 0 to 1"),
	),
	mcp.WithNumber("total_estimate",
		mcp.Description("Running estimate of how many thoughts the chain will need"),
	),
	mcp.WithNumber("revises_thought_id",
		mcp.Description("Id of an earlier thought in this sequence to revise"),
	),
)

var showToolDef = mcp.NewTool("think_show",
	mcp.WithDescription(
		"Retrieve a reasoning sequence with its full rendered transcript, "+
			"thought and branch counts, and completion state.",
	),
	mcp.WithNumber("sequence_id",
		mcp.Required(),
		mcp.Description("Sequence to show"),
	),
)

var listToolDef = mcp.NewTool("think_list",
	mcp.WithDescription(
		"List reasoning sequences ordered by last activity, optionally "+
			"filtered to one project or to active (unconcluded) sequences.",
	),
	mcp.WithString("project",
		mcp.Description("Only sequences under this project"),
	),
	mcp.WithBoolean("active_only",
		mcp.Description("Exclude completed sequences"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip for pagination"),
	),
)

var branchesToolDef = mcp.NewTool("think_branches",
	mcp.WithDescription(
		"List the branches of a reasoning sequence with per-branch thought counts.",
	),
	mcp.WithNumber("sequence_id",
		mcp.Required(),
		mcp.Description("Sequence whose branches to list"),
	),
)

var rememberToolDef = mcp.NewTool("memory_store",
	mcp.WithDescription(
		"Store a memory record directly, outside any reasoning sequence. "+
			"Decisions from concluded sequences are filed automatically; use this "+
			"for standalone notes and insights worth keeping.",
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The memory text"),
	),
	mcp.WithString("project",
		mcp.Description("Project to file the memory under (default: 'default')"),
	),
	mcp.WithString("memory_type",
		mcp.Description("decision, insight, or note (default: note)"),
	),
	mcp.WithNumber("importance",
		mcp.Description("Importance weight, 0 to 1 (default 0.5)"),
	),
)

var memoriesToolDef = mcp.NewTool("memory_search",
	mcp.WithDescription(
		"List or search stored memories, newest first. With a query, matches "+
			"the content by substring; filters narrow by project and memory type.",
	),
	mcp.WithString("query",
		mcp.Description("Substring to search for in memory content"),
	),
	mcp.WithString("project",
		mcp.Description("Only memories under this project"),
	),
	mcp.WithString("memory_type",
		mcp.Description("Only memories of this type (decision, insight, note)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip for pagination"),
	),
)
