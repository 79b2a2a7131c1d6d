package db

import (
	"context"
)

const addHarvestRun = `
insert into harvest_run (
    id, course, entry_url, output_dir, attempted, succeeded, started_at, finished_at
) values (?, ?, ?, ?, ?, ?, ?, ?)
`

type AddHarvestRunParams struct {
	ID         string
	Course     string
	EntryUrl   string
	OutputDir  string
	Attempted  int64
	Succeeded  int64
	StartedAt  int64
	FinishedAt int64
}

func (q *Queries) AddHarvestRun(ctx context.Context, arg AddHarvestRunParams) error {
	_, err := q.db.ExecContext(ctx, addHarvestRun,
		arg.ID,
		arg.Course,
		arg.EntryUrl,
		arg.OutputDir,
		arg.Attempted,
		arg.Succeeded,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const addLessonOutcome = `
insert into lesson_outcome (
    run_id, sequence, title, url, path, size, status, reason, error, skipped
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type AddLessonOutcomeParams struct {
	RunID    string
	Sequence int64
	Title    string
	Url      string
	Path     string
	Size     int64
	Status   string
	Reason   string
	Error    string
	Skipped  bool
}

func (q *Queries) AddLessonOutcome(ctx context.Context, arg AddLessonOutcomeParams) error {
	_, err := q.db.ExecContext(ctx, addLessonOutcome,
		arg.RunID,
		arg.Sequence,
		arg.Title,
		arg.Url,
		arg.Path,
		arg.Size,
		arg.Status,
		arg.Reason,
		arg.Error,
		arg.Skipped,
	)
	return err
}

const getHarvestRun = `
select id, course, entry_url, output_dir, attempted, succeeded, started_at, finished_at
from harvest_run
where id = ?
`

func (q *Queries) GetHarvestRun(ctx context.Context, id string) (HarvestRun, error) {
	row := q.db.QueryRowContext(ctx, getHarvestRun, id)
	var i HarvestRun
	err := row.Scan(
		&i.ID,
		&i.Course,
		&i.EntryUrl,
		&i.OutputDir,
		&i.Attempted,
		&i.Succeeded,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}

const listHarvestRuns = `
select id, course, entry_url, output_dir, attempted, succeeded, started_at, finished_at
from harvest_run
order by started_at desc
limit ?
`

func (q *Queries) ListHarvestRuns(ctx context.Context, limit int64) ([]HarvestRun, error) {
	rows, err := q.db.QueryContext(ctx, listHarvestRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HarvestRun
	for rows.Next() {
		var i HarvestRun
		if err := rows.Scan(
			&i.ID,
			&i.Course,
			&i.EntryUrl,
			&i.OutputDir,
			&i.Attempted,
			&i.Succeeded,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLessonOutcomes = `
select run_id, sequence, title, url, path, size, status, reason, error, skipped
from lesson_outcome
where run_id = ?
order by sequence
`

func (q *Queries) ListLessonOutcomes(ctx context.Context, runID string) ([]LessonOutcome, error) {
	rows, err := q.db.QueryContext(ctx, listLessonOutcomes, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LessonOutcome
	for rows.Next() {
		var i LessonOutcome
		if err := rows.Scan(
			&i.RunID,
			&i.Sequence,
			&i.Title,
			&i.Url,
			&i.Path,
			&i.Size,
			&i.Status,
			&i.Reason,
			&i.Error,
			&i.Skipped,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
