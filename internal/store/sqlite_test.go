package store

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

func openTestSink(t *testing.T) (*SQLiteSink, core.Submitter) {
	t.Helper()
	sink, err := OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	if err := sink.EnsureTable(context.Background(), peopleSchema()); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	return sink, sink.ForSchema(peopleSchema())
}

func payload(mode core.ImportMode, keys []string, valid ...core.Values) core.Payload {
	return core.Payload{
		ImportMode:  mode,
		PrimaryKeys: keys,
		Data: core.Partition{
			ValidData:   valid,
			InvalidData: []core.Values{{"id": "bad", "Full Name": "never written"}},
		},
		File: core.FileHandle{Name: "people.csv"},
	}
}

func names(t *testing.T, sink *SQLiteSink) map[string]string {
	t.Helper()
	rows, err := sink.DB().Query(`SELECT id, full_name FROM people`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Fatal(err)
		}
		out[id] = name
	}
	return out
}

func TestSQLiteSink_Modes(t *testing.T) {
	sink, sub := openTestSink(t)
	ctx := context.Background()

	err := sub.Submit(ctx, payload(core.ModeAppend, nil,
		core.Values{"id": "1", "Full Name": "Ada", "amount": "10"},
		core.Values{"id": "2", "Full Name": "Grace", "amount": ""},
	))
	if err != nil {
		t.Fatalf("append error = %v", err)
	}

	res, err := sub.(*SQLiteSink).Write(ctx, payload(core.ModeUpdate, []string{"id"},
		core.Values{"id": "1", "Full Name": "Ada L.", "amount": "11"},
		core.Values{"id": "3", "Full Name": "Nobody", "amount": "1"},
	))
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	if res != (Result{Updated: 1, Skipped: 1}) {
		t.Errorf("update result = %+v", res)
	}

	res, err = sub.(*SQLiteSink).Write(ctx, payload(core.ModeAppendUpdate, []string{"id"},
		core.Values{"id": "2", "Full Name": "Grace H.", "amount": "2"},
		core.Values{"id": "4", "Full Name": "Linus", "amount": "4"},
	))
	if err != nil {
		t.Fatalf("appendUpdate error = %v", err)
	}
	if res != (Result{Inserted: 1, Updated: 1}) {
		t.Errorf("appendUpdate result = %+v", res)
	}

	got := names(t, sink)
	want := map[string]string{"1": "Ada L.", "2": "Grace H.", "4": "Linus"}
	if len(got) != len(want) {
		t.Fatalf("table = %v, want %v", got, want)
	}
	for id, name := range want {
		if got[id] != name {
			t.Errorf("row %s = %q, want %q", id, got[id], name)
		}
	}
}

func TestSQLiteSink_RollsBackOnError(t *testing.T) {
	sink, sub := openTestSink(t)
	ctx := context.Background()

	if _, err := sink.DB().Exec(`CREATE UNIQUE INDEX people_id ON people (id)`); err != nil {
		t.Fatal(err)
	}

	err := sub.Submit(ctx, payload(core.ModeAppend, nil,
		core.Values{"id": "1", "Full Name": "Ada"},
		core.Values{"id": "1", "Full Name": "Ada again"},
	))
	if err == nil {
		t.Fatal("duplicate key accepted")
	}
	if msg := core.MapError(err); msg.Code != "SUB004" {
		t.Errorf("MapError() code = %s, want SUB004 (err %v)", msg.Code, err)
	}
	if got := names(t, sink); len(got) != 0 {
		t.Errorf("rows after failed submit = %v, want none", got)
	}
}

func TestSQLiteSink_Unbound(t *testing.T) {
	sink, _ := openTestSink(t)
	if err := sink.Submit(context.Background(), core.Payload{ImportMode: core.ModeAppend}); !errors.Is(err, ErrNoSchema) {
		t.Errorf("Submit() unbound error = %v, want ErrNoSchema", err)
	}
}
