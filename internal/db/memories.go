package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/memory"
)

// InsertMemory stores a new memory record.
func InsertMemory(ctx context.Context, db *sql.DB, m *memory.Memory) error {
	metadataJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO memories (id, project_name, memory_type, content, importance, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.ProjectName, string(m.Type), m.Content, m.Importance, metadataJSON, m.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetMemory retrieves a memory by its ULID.
func GetMemory(ctx context.Context, db *sql.DB, id string) (*memory.Memory, error) {
	row := db.QueryRowContext(ctx, memorySelect+` WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// MemoryFilters narrows ListMemories and SearchMemories.
type MemoryFilters struct {
	ProjectName *string
	Type        *string
}

// ListMemories retrieves memories ordered by recency.
func ListMemories(ctx context.Context, db *sql.DB, filters MemoryFilters, limit, offset int) ([]*memory.Memory, int, error) {
	return queryMemories(ctx, db, "", filters, limit, offset)
}

// SearchMemories performs a case-insensitive substring search over memory
// content, newest first.
func SearchMemories(ctx context.Context, db *sql.DB, query string, filters MemoryFilters, limit, offset int) ([]*memory.Memory, int, error) {
	return queryMemories(ctx, db, query, filters, limit, offset)
}

func queryMemories(ctx context.Context, db *sql.DB, search string, filters MemoryFilters, limit, offset int) ([]*memory.Memory, int, error) {
	where := "1=1"
	args := []any{}
	if filters.ProjectName != nil {
		where += " AND project_name = ?"
		args = append(args, *filters.ProjectName)
	}
	if filters.Type != nil {
		where += " AND memory_type = ?"
		args = append(args, *filters.Type)
	}
	if search != "" {
		where += " AND content LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(search)+"%")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := memorySelect + ` WHERE ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var memories []*memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return memories, total, nil
}

const memorySelect = `
	SELECT id, project_name, memory_type, content, importance, metadata_json, created_at
	FROM memories`

// scanMemory scans a single row into a Memory struct.
func scanMemory(row scanner) (*memory.Memory, error) {
	var (
		m            memory.Memory
		typ          string
		metadataJSON sql.NullString
	)

	err := row.Scan(&m.ID, &m.ProjectName, &typ, &m.Content, &m.Importance, &metadataJSON, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Type = memory.Kind(typ)
	if err := unmarshalMetadata(metadataJSON, &m.Metadata); err != nil {
		return nil, err
	}

	return &m, nil
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
