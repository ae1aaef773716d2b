package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

const todoColumns = `id, user_id, text, description, done, important, priority, due_date, created_at, updated_at, completed_at`

// TodoRepository implements repository.TodoRepository
type TodoRepository struct {
	db *sql.DB
}

var _ repository.TodoRepository = (*TodoRepository)(nil)

// FindAll returns all todos of the owner in insertion order
func (r *TodoRepository) FindAll(ctx context.Context, owner string) ([]model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = ? ORDER BY id`, owner)
	if err != nil {
		return nil, repository.NewStorageError("find todos", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	byID := map[string]int{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, repository.NewStorageError("scan todo", err)
		}
		byID[todo.ID] = len(todos)
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.NewStorageError("find todos", err)
	}

	groupRows, err := r.db.QueryContext(ctx, `
SELECT td.todo_id, d.name
FROM todo_directories td
JOIN directories d ON d.id = td.directory_id
WHERE d.user_id = ?
ORDER BY td.todo_id, td.position`, owner)
	if err != nil {
		return nil, repository.NewStorageError("find groups", err)
	}
	defer groupRows.Close()

	for groupRows.Next() {
		var (
			todoID int64
			name   string
		)
		if err := groupRows.Scan(&todoID, &name); err != nil {
			return nil, repository.NewStorageError("scan group", err)
		}
		if idx, ok := byID[strconv.FormatInt(todoID, 10)]; ok {
			todos[idx].Groups = append(todos[idx].Groups, name)
		}
	}
	if err := groupRows.Err(); err != nil {
		return nil, repository.NewStorageError("find groups", err)
	}

	return todos, nil
}

// FindByID returns a specific todo by ID
func (r *TodoRepository) FindByID(ctx context.Context, owner, id string) (model.Todo, error) {
	rowID, ok := parseID(id)
	if !ok {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND user_id = ?`, rowID, owner)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}
	if err != nil {
		return model.Todo{}, repository.NewStorageError("find todo", err)
	}

	todo.Groups, err = loadGroups(ctx, r.db, rowID)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("find groups", err)
	}

	return todo, nil
}

// Create inserts a todo and links its groups
func (r *TodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO todos (user_id, text, description, done, important, priority, due_date, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.UserID, todo.Text, todo.Description, todo.Done, todo.Important, string(todo.Priority),
		nullMillis(todo.DueDate), toMillis(todo.CreatedAt), toMillis(todo.UpdatedAt), nullMillis(todo.CompletedAt),
	)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("insert todo", err)
	}

	rowID, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, repository.NewStorageError("insert todo", err)
	}

	if err := linkGroups(ctx, tx, todo.UserID, rowID, todo.Groups); err != nil {
		return model.Todo{}, repository.NewStorageError("link groups", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Todo{}, repository.NewStorageError("commit", err)
	}

	todo.ID = strconv.FormatInt(rowID, 10)
	if todo.Groups == nil {
		todo.Groups = []string{}
	}
	return withStoredTimes(todo), nil
}

// Update overwrites the stored fields of an existing todo
func (r *TodoRepository) Update(ctx context.Context, owner, id string, todo model.Todo) (model.Todo, error) {
	rowID, ok := parseID(id)
	if !ok {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE todos
SET text = ?, description = ?, done = ?, important = ?, priority = ?, due_date = ?, updated_at = ?, completed_at = ?
WHERE id = ? AND user_id = ?`,
		todo.Text, todo.Description, todo.Done, todo.Important, string(todo.Priority),
		nullMillis(todo.DueDate), toMillis(todo.UpdatedAt), nullMillis(todo.CompletedAt),
		rowID, owner,
	)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("update todo", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Todo{}, repository.NewStorageError("update todo", err)
	} else if n == 0 {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM todo_directories WHERE todo_id = ?`, rowID); err != nil {
		return model.Todo{}, repository.NewStorageError("unlink groups", err)
	}
	if err := linkGroups(ctx, tx, owner, rowID, todo.Groups); err != nil {
		return model.Todo{}, repository.NewStorageError("link groups", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Todo{}, repository.NewStorageError("commit", err)
	}

	todo.ID = id
	todo.UserID = owner
	return withStoredTimes(todo), nil
}

// Delete removes a todo; its group links go with it
func (r *TodoRepository) Delete(ctx context.Context, owner, id string) error {
	rowID, ok := parseID(id)
	if !ok {
		return repository.ErrTodoNotFound{ID: id}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, rowID, owner)
	if err != nil {
		return repository.NewStorageError("delete todo", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return repository.NewStorageError("delete todo", err)
	}
	if n == 0 {
		return repository.ErrTodoNotFound{ID: id}
	}

	return nil
}

// DeleteCompleted removes every done todo of the owner
func (r *TodoRepository) DeleteCompleted(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = ? AND done = 1`, owner)
	if err != nil {
		return 0, repository.NewStorageError("delete completed", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, repository.NewStorageError("delete completed", err)
	}

	return n, nil
}

// linkGroups makes sure a directory exists per group and links it to the todo
// keeping the label order
func linkGroups(ctx context.Context, tx *sql.Tx, owner string, todoID int64, groups []string) error {
	for position, name := range groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO directories (user_id, name) VALUES (?, ?) ON CONFLICT (user_id, name) DO NOTHING`,
			owner, name,
		); err != nil {
			return err
		}

		var dirID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM directories WHERE user_id = ? AND name = ?`, owner, name,
		).Scan(&dirID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO todo_directories (todo_id, directory_id, position) VALUES (?, ?, ?)`,
			todoID, dirID, position,
		); err != nil {
			return err
		}
	}
	return nil
}

func loadGroups(ctx context.Context, db *sql.DB, todoID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
SELECT d.name
FROM todo_directories td
JOIN directories d ON d.id = td.directory_id
WHERE td.todo_id = ?
ORDER BY td.position`, todoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		groups = append(groups, name)
	}

	return groups, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (model.Todo, error) {
	var (
		todo        model.Todo
		rowID       int64
		priority    string
		dueDate     sql.NullInt64
		createdAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)

	if err := row.Scan(
		&rowID, &todo.UserID, &todo.Text, &todo.Description, &todo.Done, &todo.Important,
		&priority, &dueDate, &createdAt, &updatedAt, &completedAt,
	); err != nil {
		return model.Todo{}, err
	}

	todo.ID = strconv.FormatInt(rowID, 10)
	todo.Priority = model.Priority(priority)
	todo.DueDate = fromNullMillis(dueDate)
	todo.CreatedAt = fromMillis(createdAt)
	todo.UpdatedAt = fromMillis(updatedAt)
	todo.CompletedAt = fromNullMillis(completedAt)
	todo.Groups = []string{}

	return todo, nil
}

func parseID(id string) (int64, bool) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || rowID <= 0 {
		return 0, false
	}
	return rowID, true
}
