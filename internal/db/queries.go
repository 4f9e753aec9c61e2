package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Run struct {
	ID         string
	Site       string
	StartedAt  int64
	FinishedAt int64
}

const createRun = `-- name: CreateRun :exec
insert into run(id, site, started_at, finished_at) values (?, ?, ?, ?)
`

func (q *Queries) CreateRun(ctx context.Context, arg Run) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.Site,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const getRun = `-- name: GetRun :one
select id, site, started_at, finished_at from run where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.Site,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}

const listRuns = `-- name: ListRuns :many
select id, site, started_at, finished_at from run
order by started_at desc, id
`

func (q *Queries) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.Site,
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

type CreateRecordParams struct {
	RunID       string
	Tab         string
	TabPosition int64
	Position    int64
	Title       string
	Href        string
	Error       string
}

const createRecord = `-- name: CreateRecord :one
insert into record(run_id, tab, tab_position, position, title, href, error)
values (?, ?, ?, ?, ?, ?, ?)
returning id
`

func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRecord,
		arg.RunID,
		arg.Tab,
		arg.TabPosition,
		arg.Position,
		arg.Title,
		arg.Href,
		arg.Error,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type Record struct {
	ID          int64
	Tab         string
	TabPosition int64
	Position    int64
	Title       string
	Href        string
	Error       string
}

const getRecords = `-- name: GetRecords :many
select id, tab, tab_position, position, title, href, error from record
where run_id = ?
order by tab_position, position
`

func (q *Queries) GetRecords(ctx context.Context, runID string) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, getRecords, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(
			&i.ID,
			&i.Tab,
			&i.TabPosition,
			&i.Position,
			&i.Title,
			&i.Href,
			&i.Error,
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

type CreateColumnParams struct {
	RecordID int64
	Position int64
	Name     string
	Value    string
}

const createColumn = `-- name: CreateColumn :exec
insert into record_column(record_id, position, name, value) values (?, ?, ?, ?)
`

func (q *Queries) CreateColumn(ctx context.Context, arg CreateColumnParams) error {
	_, err := q.db.ExecContext(ctx, createColumn,
		arg.RecordID,
		arg.Position,
		arg.Name,
		arg.Value,
	)
	return err
}

type CreateFieldParams struct {
	RecordID int64
	Name     string
	Value    string
}

const createField = `-- name: CreateField :exec
insert into record_field(record_id, name, value) values (?, ?, ?)
`

func (q *Queries) CreateField(ctx context.Context, arg CreateFieldParams) error {
	_, err := q.db.ExecContext(ctx, createField, arg.RecordID, arg.Name, arg.Value)
	return err
}

type CreateDocumentParams struct {
	RecordID int64
	Position int64
	Path     string
}

const createDocument = `-- name: CreateDocument :exec
insert into record_document(record_id, position, path) values (?, ?, ?)
`

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) error {
	_, err := q.db.ExecContext(ctx, createDocument, arg.RecordID, arg.Position, arg.Path)
	return err
}

// RecordValue is one (name, value) pair belonging to a record, columns and
// fields share it. Documents leave Name empty.
type RecordValue struct {
	RecordID int64
	Name     string
	Value    string
}

const getColumns = `-- name: GetColumns :many
select c.record_id, c.name, c.value from record_column c
join record r on r.id = c.record_id
where r.run_id = ?
order by c.record_id, c.position
`

func (q *Queries) GetColumns(ctx context.Context, runID string) ([]RecordValue, error) {
	return q.recordValues(ctx, getColumns, runID)
}

const getFields = `-- name: GetFields :many
select f.record_id, f.name, f.value from record_field f
join record r on r.id = f.record_id
where r.run_id = ?
order by f.record_id, f.name
`

func (q *Queries) GetFields(ctx context.Context, runID string) ([]RecordValue, error) {
	return q.recordValues(ctx, getFields, runID)
}

const getDocuments = `-- name: GetDocuments :many
select d.record_id, '', d.path from record_document d
join record r on r.id = d.record_id
where r.run_id = ?
order by d.record_id, d.position
`

func (q *Queries) GetDocuments(ctx context.Context, runID string) ([]RecordValue, error) {
	return q.recordValues(ctx, getDocuments, runID)
}

func (q *Queries) recordValues(ctx context.Context, query, runID string) ([]RecordValue, error) {
	rows, err := q.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecordValue
	for rows.Next() {
		var i RecordValue
		if err := rows.Scan(&i.RecordID, &i.Name, &i.Value); err != nil {
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

const countRecords = `-- name: CountRecords :one
select count(*), coalesce(sum(error != ''), 0) from record
where run_id = ? and position >= 0
`

type CountRecordsRow struct {
	Total  int64
	Errors int64
}

// CountRecords returns the number of records of a run and how many of them failed.
func (q *Queries) CountRecords(ctx context.Context, runID string) (CountRecordsRow, error) {
	row := q.db.QueryRowContext(ctx, countRecords, runID)
	var i CountRecordsRow
	err := row.Scan(&i.Total, &i.Errors)
	return i, err
}
