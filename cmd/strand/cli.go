package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/insight"
	"github.com/hpungsan/strand/internal/ops"
	"github.com/hpungsan/strand/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "strand",
		Usage:   "Structured reasoning sequences with branches and memory",
		Version: Version,
		Commands: []*cli.Command{
			startCmd(db),
			thinkCmd(db, cfg),
			showCmd(db),
			listCmd(db),
			branchesCmd(db),
			rememberCmd(db),
			memoriesCmd(db),
			workerCmd(db, cfg),
			webCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// startCmd creates the start command.
func startCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a new reasoning sequence for a goal",
		ArgsUsage: "<goal>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project name (default: 'default')"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Longer context for the sequence"},
		},
		Action: func(c *cli.Context) error {
			goal := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if goal == "" {
				return outputError(errors.NewInvalidRequest("goal is required"))
			}

			output, err := ops.Start(c.Context, db, ops.StartInput{
				Goal:        goal,
				ProjectName: c.String("project"),
				Description: c.String("description"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// thinkCmd creates the think command.
func thinkCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "think",
		Usage:     "Append a thought to a sequence (content from args or stdin)",
		ArgsUsage: "<sequence-id> [content]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Thought type (reasoning, conclusion, alternative, ...)"},
			&cli.StringFlag{Name: "branch-name", Usage: "Branch to create when branching, or to continue otherwise"},
			&cli.Float64Flag{Name: "confidence", Usage: "Confidence in this thought, 0 to 1"},
			&cli.IntFlag{Name: "estimate", Usage: "Running estimate of total thoughts"},
			&cli.Int64Flag{Name: "revises", Usage: "Id of an earlier thought to revise"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("sequence id is required"))
			}
			sequenceID, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return outputError(errors.NewInvalidRequest("sequence id must be an integer"))
			}

			content := strings.TrimSpace(strings.Join(c.Args().Slice()[1:], " "))
			if content == "" && stdinHasData() {
				content, err = readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			if content == "" {
				return outputError(errors.NewInvalidRequest("content is required (argument or stdin)"))
			}

			input := ops.ThinkInput{
				SequenceID:    sequenceID,
				Content:       content,
				ThoughtType:   c.String("type"),
				BranchName:    c.String("branch-name"),
				TotalEstimate: c.Int("estimate"),
			}
			if c.IsSet("confidence") {
				conf := c.Float64("confidence")
				input.Confidence = &conf
			}
			if c.IsSet("revises") {
				revises := c.Int64("revises")
				input.RevisesThoughtID = &revises
			}

			output, err := ops.Think(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a sequence with its rendered transcript",
		ArgsUsage: "<sequence-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "transcript", Usage: "Print only the transcript, not JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("sequence id is required"))
			}
			sequenceID, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return outputError(errors.NewInvalidRequest("sequence id must be an integer"))
			}

			output, err := ops.Show(c.Context, db, ops.ShowInput{SequenceID: sequenceID})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("transcript") {
				fmt.Println(output.Transcript)
				return nil
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List reasoning sequences, most recently active first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Filter by project"},
			&cli.BoolFlag{Name: "active", Usage: "Only active (unconcluded) sequences"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				ActiveOnly: c.Bool("active"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			}
			if project := c.String("project"); project != "" {
				input.ProjectName = &project
			}

			output, err := ops.List(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// branchesCmd creates the branches command.
func branchesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "branches",
		Usage:     "List the branches of a sequence",
		ArgsUsage: "<sequence-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("sequence id is required"))
			}
			sequenceID, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return outputError(errors.NewInvalidRequest("sequence id must be an integer"))
			}

			output, err := ops.Branches(c.Context, db, ops.BranchesInput{SequenceID: sequenceID})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// rememberCmd creates the remember command.
func rememberCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "remember",
		Usage:     "Store a memory record (content from args or stdin)",
		ArgsUsage: "[content]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project name (default: 'default')"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "note", Usage: "Memory type: decision|insight|note"},
			&cli.Float64Flag{Name: "importance", Usage: "Importance weight, 0 to 1"},
		},
		Action: func(c *cli.Context) error {
			content := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if content == "" && stdinHasData() {
				var err error
				content, err = readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			if content == "" {
				return outputError(errors.NewInvalidRequest("content is required (argument or stdin)"))
			}

			input := ops.RememberInput{
				Content:     content,
				ProjectName: c.String("project"),
				MemoryType:  c.String("type"),
			}
			if c.IsSet("importance") {
				imp := c.Float64("importance")
				input.Importance = &imp
			}

			output, err := ops.Remember(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// memoriesCmd creates the memories command.
func memoriesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "memories",
		Usage:     "List or search stored memories",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Filter by project"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by memory type"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.MemoriesInput{
				Query:  strings.TrimSpace(strings.Join(c.Args().Slice(), " ")),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			if project := c.String("project"); project != "" {
				input.ProjectName = &project
			}
			if memType := c.String("type"); memType != "" {
				input.MemoryType = &memType
			}

			output, err := ops.Memories(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// workerCmd creates the worker command.
func workerCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Drain pending insight jobs and exit",
		Action: func(c *cli.Context) error {
			insight.NewWorker(db, cfg).Drain(c.Context)
			return nil
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7468, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			// The insight worker runs alongside the UI so queued jobs are
			// processed while the server is up.
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			go insight.NewWorker(db, cfg).Run(ctx)

			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := err.(*errors.StrandError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
