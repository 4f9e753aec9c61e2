package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"portalcrawl/internal/assert"
	"portalcrawl/internal/db"
	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("portalcrawl/lib/store")

const (
	report_store_save = "store.save-run"
	report_store_load = "store.load-run"
)

// Open opens the run database named by dsn. libsql:// http(s):// and ws(s)://
// urls are remote libsql databases, everything else is a local sqlite file.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database was not specified")
	}
	for _, scheme := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, scheme) {
			return sql.Open("libsql", dsn)
		}
	}

	path := strings.TrimPrefix(dsn, "file:")
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	sqlDB.SetMaxOpenConns(1)
	_, err = sqlDB.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Run describes one stored crawl.
type Run struct {
	ID         string
	Site       string
	StartedAt  time.Time
	FinishedAt time.Time
	// Total and Errors are only filled by ListRuns.
	Total  int
	Errors int
}

type Store struct {
	makeTx db.MakeTx
	qry    *db.Queries
	tel    telemetry.API
}

// NewStore applies the schema to sqlDB.
func NewStore(ctx context.Context, sqlDB *sql.DB, tel telemetry.API) (Store, error) {
	assert.NotNil(sqlDB, "sqlDB")
	if tel == nil {
		tel = telemetry.NopAPI{}
	}
	_, err := sqlDB.ExecContext(ctx, db.Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{
		makeTx: db.NewMakeTx(sqlDB),
		qry:    db.New(sqlDB),
		tel:    telemetry.NewScopedAPI("store", tel),
	}, nil
}

// SaveRun stores result in a single transaction and returns the new run id,
// run.ID is ignored.
func (s Store) SaveRun(ctx context.Context, run Run, result *crawl.Result) (string, error) {
	ctx, span := tracer.Start(ctx, "Store.SaveRun")
	defer span.End()

	tx, discard, commit, err := s.makeTx()
	if err != nil {
		s.tel.ReportBroken(report_store_save, fmt.Errorf("make tx: %w", err))
		return "", err
	}
	defer discard()

	id := uuid.NewString()
	err = tx.CreateRun(ctx, db.Run{
		ID:         id,
		Site:       run.Site,
		StartedAt:  run.StartedAt.UnixMilli(),
		FinishedAt: run.FinishedAt.UnixMilli(),
	})
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, "CreateRun")
		return "", err
	}

	for tabPosition, tab := range result.Tabs() {
		records := result.Records(tab)
		if len(records) == 0 {
			_, err = tx.CreateRecord(ctx, db.CreateRecordParams{
				RunID:       id,
				Tab:         tab,
				TabPosition: int64(tabPosition),
				Position:    db.NoRecords,
			})
			if err != nil {
				s.tel.ReportBroken(report_store_save, err, "CreateRecord", tab)
				return "", err
			}
			continue
		}
		for position, record := range records {
			err = saveRecord(ctx, tx, db.CreateRecordParams{
				RunID:       id,
				Tab:         tab,
				TabPosition: int64(tabPosition),
				Position:    int64(position),
				Title:       record.Title,
				Href:        record.Href,
				Error:       record.Error,
			}, record)
			if err != nil {
				s.tel.ReportBroken(report_store_save, err, tab, record.Title)
				return "", err
			}
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, "commit")
		return "", err
	}
	return id, nil
}

func saveRecord(ctx context.Context, tx *db.Queries, params db.CreateRecordParams, record portal.EnrichedRecord) error {
	recordID, err := tx.CreateRecord(ctx, params)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	for i, col := range record.Columns {
		err = tx.CreateColumn(ctx, db.CreateColumnParams{
			RecordID: recordID,
			Position: int64(i),
			Name:     col.Name,
			Value:    col.Value,
		})
		if err != nil {
			return fmt.Errorf("create column %q: %w", col.Name, err)
		}
	}
	names := make([]string, 0, len(record.Fields))
	for name := range record.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err = tx.CreateField(ctx, db.CreateFieldParams{
			RecordID: recordID,
			Name:     name,
			Value:    record.Fields[name],
		})
		if err != nil {
			return fmt.Errorf("create field %q: %w", name, err)
		}
	}
	for i, path := range record.Documents {
		err = tx.CreateDocument(ctx, db.CreateDocumentParams{
			RecordID: recordID,
			Position: int64(i),
			Path:     path,
		})
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
	}
	return nil
}

func runFromRow(row db.Run) Run {
	return Run{
		ID:         row.ID,
		Site:       row.Site,
		StartedAt:  time.UnixMilli(row.StartedAt),
		FinishedAt: time.UnixMilli(row.FinishedAt),
	}
}

// ListRuns returns every stored run, newest first.
func (s Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.qry.ListRuns(ctx)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, "ListRuns")
		return nil, err
	}
	runs := make([]Run, len(rows))
	for i, row := range rows {
		runs[i] = runFromRow(row)
		count, err := s.qry.CountRecords(ctx, row.ID)
		if err != nil {
			s.tel.ReportBroken(report_store_load, err, "CountRecords", row.ID)
			return nil, err
		}
		runs[i].Total = int(count.Total)
		runs[i].Errors = int(count.Errors)
	}
	return runs, nil
}

// LoadRun rebuilds the result of a stored run, sql.ErrNoRows is returned
// for an unknown id.
func (s Store) LoadRun(ctx context.Context, id string) (Run, *crawl.Result, error) {
	ctx, span := tracer.Start(ctx, "Store.LoadRun")
	defer span.End()

	row, err := s.qry.GetRun(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	run := runFromRow(row)

	records, err := s.qry.GetRecords(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, "GetRecords", id)
		return Run{}, nil, err
	}
	columns, err := s.qry.GetColumns(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, "GetColumns", id)
		return Run{}, nil, err
	}
	fields, err := s.qry.GetFields(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, "GetFields", id)
		return Run{}, nil, err
	}
	documents, err := s.qry.GetDocuments(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, "GetDocuments", id)
		return Run{}, nil, err
	}

	byID := map[int64]*portal.EnrichedRecord{}
	for _, c := range columns {
		rec := recordOf(byID, c.RecordID)
		rec.Columns = append(rec.Columns, portal.Column{Name: c.Name, Value: c.Value})
	}
	for _, f := range fields {
		rec := recordOf(byID, f.RecordID)
		if rec.Fields == nil {
			rec.Fields = map[string]string{}
		}
		rec.Fields[f.Name] = f.Value
	}
	for _, d := range documents {
		rec := recordOf(byID, d.RecordID)
		rec.Documents = append(rec.Documents, d.Value)
	}

	result := crawl.NewResult()
	for _, r := range records {
		result.StartTab(r.Tab)
		if r.Position == db.NoRecords {
			continue
		}
		rec := recordOf(byID, r.ID)
		rec.Title = r.Title
		rec.Href = r.Href
		rec.Error = r.Error
		result.Add(r.Tab, *rec)
	}
	return run, result, nil
}

func recordOf(byID map[int64]*portal.EnrichedRecord, id int64) *portal.EnrichedRecord {
	rec, ok := byID[id]
	if !ok {
		rec = &portal.EnrichedRecord{}
		byID[id] = rec
	}
	return rec
}
