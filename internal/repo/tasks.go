package repo

import (
	"context"
	"database/sql"

	"taskcal/internal/domain"
)

const taskColumns = `id,title,COALESCE(description,'') AS description,start_date,end_date,start_time,end_time,start_date_time,end_date_time,priority,color,completed,recurrence_type,recurrence_interval,recurrence_end_date,created_at`

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(row taskScanner) (domain.Task, error) {
	var (
		t                        domain.Task
		startDate, endDate       sql.NullString
		startTime, endTime       sql.NullString
		startDT, endDT           sql.NullString
		color, recurrenceEndDate sql.NullString
		completed                int
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description,
		&startDate, &endDate, &startTime, &endTime, &startDT, &endDT,
		&t.Priority, &color, &completed,
		&t.RecurrenceType, &t.RecurrenceInterval, &recurrenceEndDate,
		&t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.StartDate = ptrFromNull(startDate)
	t.EndDate = ptrFromNull(endDate)
	t.StartTime = ptrFromNull(startTime)
	t.EndTime = ptrFromNull(endTime)
	t.StartDateTime = ptrFromNull(startDT)
	t.EndDateTime = ptrFromNull(endDT)
	t.Color = ptrFromNull(color)
	t.RecurrenceEndDate = ptrFromNull(recurrenceEndDate)
	t.Completed = completed != 0
	return t, nil
}

func taskArgs(t domain.Task) []any {
	completed := 0
	if t.Completed {
		completed = 1
	}
	return []any{
		t.ID, t.Title, nullable(t.Description),
		nullablePtr(t.StartDate), nullablePtr(t.EndDate),
		nullablePtr(t.StartTime), nullablePtr(t.EndTime),
		nullablePtr(t.StartDateTime), nullablePtr(t.EndDateTime),
		t.Priority, nullablePtr(t.Color), completed,
		t.RecurrenceType, t.RecurrenceInterval, nullablePtr(t.RecurrenceEndDate),
		t.CreatedAt,
	}
}

const insertTaskSQL = `INSERT INTO tasks(id,title,description,start_date,end_date,start_time,end_time,start_date_time,end_date_time,priority,color,completed,recurrence_type,recurrence_interval,recurrence_end_date,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, insertTaskSQL, taskArgs(t)...)
	return wrap("insert task", err)
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	completed := 0
	if t.Completed {
		completed = 1
	}
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?,description=?,start_date=?,end_date=?,start_time=?,end_time=?,start_date_time=?,end_date_time=?,priority=?,color=?,completed=?,recurrence_type=?,recurrence_interval=?,recurrence_end_date=? WHERE id=?`,
		t.Title, nullable(t.Description),
		nullablePtr(t.StartDate), nullablePtr(t.EndDate),
		nullablePtr(t.StartTime), nullablePtr(t.EndTime),
		nullablePtr(t.StartDateTime), nullablePtr(t.EndDateTime),
		t.Priority, nullablePtr(t.Color), completed,
		t.RecurrenceType, t.RecurrenceInterval, nullablePtr(t.RecurrenceEndDate),
		t.ID)
	if err != nil {
		return wrap("update task", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return wrap("delete task", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

// ListTasks returns the whole task collection ordered by creation.
func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ReplaceAllTasks swaps in a whole new task collection. The save contract
// is replace-everything; there are no partial writes.
func (r Repo) ReplaceAllTasks(ctx context.Context, tx *sql.Tx, tasks []domain.Task) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return wrap("clear tasks", err)
	}
	for _, t := range tasks {
		if err := r.InsertTask(ctx, tx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) CountTasks(ctx context.Context) (total, completed int, err error) {
	err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(completed),0) FROM tasks`).Scan(&total, &completed)
	return total, completed, wrap("count tasks", err)
}
