package cli

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bedquilt/internal/querysql"
	"github.com/roach88/bedquilt/internal/store"
)

// mockStore returns root options whose store runs on sqlmock with the catalog
// already migrated.
func mockStore(t *testing.T) (*RootOptions, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("create table if not exists bq_collections").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`select coalesce(max(version), 0) from bq_schema_version`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	opts := &RootOptions{
		OpenStore: func(ctx context.Context, cfg store.Config) (*store.Store, error) {
			return store.OpenDB(ctx, db, cfg)
		},
	}
	return opts, mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func TestFindCommand(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectQuery(q(`select _id, bq_jdoc from "people" where bq_jdoc @> $1::jsonb and bq_jdoc #> '{age}' > '18'::jsonb order by created asc, _id asc limit 2`)).
		WithArgs(`{"city":"Dublin"}`).
		WillReturnRows(sqlmock.NewRows([]string{"_id", "bq_jdoc"}).
			AddRow("1", []byte(`{"_id": "1", "age": 34, "city": "Dublin"}`)).
			AddRow("3", []byte(`{"_id": "3", "age": 22, "city": "Dublin"}`)))
	mock.ExpectClose()

	out, err := execute(t, opts, "",
		"find", "people", `{"age": {"$gt": 18}, "city": "Dublin"}`, "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, `{"_id": "1", "age": 34, "city": "Dublin"}
{"_id": "3", "age": 22, "city": "Dublin"}
`, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCommand_JSONByID(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectQuery(q(`select _id, bq_jdoc from "people" where _id = $1`)).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows([]string{"_id", "bq_jdoc"}).
			AddRow("7", []byte(`{"_id": "7", "name": "mike"}`)))
	mock.ExpectClose()

	out, err := execute(t, opts, "", "find", "people", "--id", "7", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Documents []map[string]any `json:"documents"`
			Count     int              `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, "mike", resp.Data.Documents[0]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCommand_NoMatches(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectQuery(q(`select _id, bq_jdoc from "people" where bq_jdoc @> $1::jsonb order by created asc, _id asc`)).
		WithArgs(`{}`).
		WillReturnRows(sqlmock.NewRows([]string{"_id", "bq_jdoc"}))
	mock.ExpectClose()

	out, err := execute(t, opts, "", "find", "people")
	require.NoError(t, err)
	assert.Equal(t, "No documents found.\n", out)
}

func TestFindCommand_RejectedQuery(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectClose()

	out, err := execute(t, opts, "", "find", "people", `{"a": {"$where": "1"}}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [UNSUPPORTED_OPERATOR]")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCommand_IDWithQuery(t *testing.T) {
	opts, _ := mockStore(t)
	_, err := execute(t, opts, "", "find", "people", `{"a": 1}`, "--id", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCountCommand(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectQuery(q(`select count(*) from "people" where bq_jdoc @> $1::jsonb and bq_jdoc #> '{tags}' <@ '["a", "b"]'::jsonb`)).
		WithArgs(`{}`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectClose()

	out, err := execute(t, opts, `{"tags": {"$in": ["a", "b"]}}`, "count", "people", "-", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok", "data": {"count": 4}}`, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCommand(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		expect func(mock sqlmock.Sqlmock)
		want   string
	}{
		{
			name: "all matches",
			args: []string{`{"a": {"$lte": 3}}`},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(q(`delete from "things" where bq_jdoc @> $1::jsonb and bq_jdoc #> '{a}' <= '3'::jsonb`)).
					WithArgs(`{}`).
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			want: "Removed 3 document(s).\n",
		},
		{
			name: "one",
			args: []string{`{"a": 1}`, "--one"},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(q(`delete from "things" where _id in (select _id from "things" where bq_jdoc @> $1::jsonb order by created asc, _id asc limit 1)`)).
					WithArgs(`{"a":1}`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: "Removed 1 document(s).\n",
		},
		{
			name: "by id",
			args: []string{"--id", "x1"},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(q(`delete from "things" where _id = $1`)).
					WithArgs("x1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: "Removed 0 document(s).\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, mock := mockStore(t)
			tt.expect(mock)
			mock.ExpectClose()

			args := append([]string{"remove", "things"}, tt.args...)
			out, err := execute(t, opts, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsertCommand(t *testing.T) {
	opts, mock := mockStore(t)
	compiler := querysql.NewSQLCompiler()
	table, err := compiler.CreateTable("people")
	require.NoError(t, err)
	index, err := compiler.CreateIndex("people")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(q(`insert into bq_collections (name) values ($1) on conflict do nothing`)).
		WithArgs("people").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(table)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(index)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(q(`insert into "people" (_id, bq_jdoc) values ($1, $2::jsonb)`)).
		WithArgs("a1", `{"_id":"a1","name":"x"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	out, err := execute(t, opts, "", "insert", "people", `{"_id": "a1", "name": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, "a1\n", out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCommand_InvalidID(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectClose()

	out, err := execute(t, opts, "", "insert", "people", `{"_id": 5}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E001]")
}

func TestCollectionCommands(t *testing.T) {
	opts, mock := mockStore(t)
	mock.ExpectQuery(q(`select name from bq_collections order by name asc`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("notes").AddRow("people"))
	mock.ExpectClose()

	out, err := execute(t, opts, "", "collection", "list")
	require.NoError(t, err)
	assert.Equal(t, "notes\npeople\n", out)

	opts, mock = mockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`delete from bq_collections where name = $1`)).
		WithArgs("notes").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectClose()

	out, err = execute(t, opts, "", "collection", "drop", "notes", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok", "data": {"deleted": false}}`, out)
}

func TestStoreCommand_NoDSN(t *testing.T) {
	t.Setenv("BEDQUILT_DATABASE_DSN", "")
	out, err := execute(t, nil, "", "count", "people")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no database configured")
}
