package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/log"
)

// fakeQuerier records executed SQL and serves canned rows.
type fakeQuerier struct {
	execSQL  []string
	execArgs [][]any
	execErr  error

	queryRows *fakeRows
	queryErr  error

	rowScan func(dest ...any) error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{scan: f.rowScan}
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeRows implements pgx.Rows over a slice of value rows.
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (*fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                 { return f.err }
func (*fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (*fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (*fakeRows) Values() ([]any, error)                       { return nil, nil }
func (*fakeRows) RawValues() [][]byte                          { return nil }
func (*fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: %d dest, %d values", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *float64:
			*d = v.(float64)
		case *[]byte:
			*d = v.([]byte)
		default:
			return fmt.Errorf("unsupported scan destination %T", dest[i])
		}
	}
	return nil
}

func persistedEntry(id string, dim int) Entry {
	return Entry{
		Chunk: chunk.Chunk{
			ID:         id,
			DocumentID: "doc_1",
			Text:       "Go has excellent backend tooling.",
			Metadata:   map[string]string{"source_type": SourceTypeWeb},
		},
		Embedding: make([]float32, dim),
		Persisted: true,
	}
}

func TestStoreUpsert(t *testing.T) {
	q := &fakeQuerier{}
	store := NewStore(q, 4, log.NewNop())

	err := store.Upsert(context.Background(), []Entry{
		persistedEntry("chunk_a", 4),
		persistedEntry("chunk_b", 4),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if len(q.execSQL) != 2 {
		t.Fatalf("executed %d statements, want 2", len(q.execSQL))
	}
	if !strings.Contains(q.execSQL[0], "ON CONFLICT (id) DO UPDATE") {
		t.Error("upsert SQL is not keyed by chunk id")
	}
	if q.execArgs[0][0] != "chunk_a" {
		t.Errorf("first arg = %v, want chunk id", q.execArgs[0][0])
	}
}

func TestStoreUpsertRejectsEphemeral(t *testing.T) {
	q := &fakeQuerier{}
	store := NewStore(q, 4, log.NewNop())

	e := persistedEntry("chunk_dyn", 4)
	e.Persisted = false

	if err := store.Upsert(context.Background(), []Entry{e}); err == nil {
		t.Fatal("Upsert accepted an ephemeral entry")
	}
	if len(q.execSQL) != 0 {
		t.Error("ephemeral entry reached the database")
	}
}

func TestStoreUpsertRejectsDimensionMismatch(t *testing.T) {
	store := NewStore(&fakeQuerier{}, 4, log.NewNop())

	err := store.Upsert(context.Background(), []Entry{persistedEntry("chunk_a", 3)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestStoreUpsertWrapsIndexUnavailable(t *testing.T) {
	q := &fakeQuerier{execErr: errors.New("connection refused")}
	store := NewStore(q, 4, log.NewNop())

	err := store.Upsert(context.Background(), []Entry{persistedEntry("chunk_a", 4)})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("got %v, want ErrIndexUnavailable", err)
	}
}

func TestStoreQuery(t *testing.T) {
	q := &fakeQuerier{queryRows: &fakeRows{rows: [][]any{
		{"chunk_a", "doc_1", "Python dominates data tooling.", 0, 0, 200, []byte(`{"source_type":"web"}`), 0.82},
		{"chunk_b", "doc_1", "Go shines in infrastructure.", 1, 150, 350, []byte(`{"source_type":"web"}`), 0.61},
	}}}
	store := NewStore(q, 4, log.NewNop())

	results, err := store.Query(context.Background(), make([]float32, 4), 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Chunk.ID != "chunk_a" || results[0].Similarity != 0.82 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	for _, r := range results {
		if r.Origin != OriginLocal {
			t.Errorf("result %s origin = %s, want local", r.Chunk.ID, r.Origin)
		}
	}
	if results[1].Chunk.Metadata["source_type"] != SourceTypeWeb {
		t.Error("metadata not parsed")
	}
}

func TestStoreQueryEmptyIndex(t *testing.T) {
	q := &fakeQuerier{queryRows: &fakeRows{}}
	store := NewStore(q, 4, log.NewNop())

	results, err := store.Query(context.Background(), make([]float32, 4), 5)
	if err != nil {
		t.Fatalf("empty index must not fail: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index", len(results))
	}
}

func TestStoreQueryValidation(t *testing.T) {
	store := NewStore(&fakeQuerier{}, 4, log.NewNop())

	if _, err := store.Query(context.Background(), make([]float32, 4), 0); err == nil {
		t.Error("k=0 accepted")
	}
	if _, err := store.Query(context.Background(), make([]float32, 3), 5); !errors.Is(err, ErrDimensionMismatch) {
		t.Error("dimension mismatch accepted")
	}
}

func TestStoreQueryUnavailable(t *testing.T) {
	q := &fakeQuerier{queryErr: errors.New("dial tcp: connection refused")}
	store := NewStore(q, 4, log.NewNop())

	_, err := store.Query(context.Background(), make([]float32, 4), 5)
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("got %v, want ErrIndexUnavailable", err)
	}
}

func TestStoreCount(t *testing.T) {
	q := &fakeQuerier{rowScan: func(dest ...any) error {
		*(dest[0].(*int64)) = 42
		return nil
	}}
	store := NewStore(q, 4, log.NewNop())

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}

func TestStoreListSources(t *testing.T) {
	q := &fakeQuerier{queryRows: &fakeRows{rows: [][]any{
		{"doc_1", "web", "https://example.com/go-vs-python", 3},
		{"doc_2", "pdf", "career-guide.pdf", 12},
	}}}
	store := NewStore(q, 4, log.NewNop())

	sources, err := store.ListSources(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[1].SourceType != "pdf" || sources[1].Chunks != 12 {
		t.Errorf("unexpected source: %+v", sources[1])
	}
}
