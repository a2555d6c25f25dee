package database

import (
	"errors"
	"testing"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
)

func TestValidateSQL(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		dialect string
		wantErr bool
	}{
		{"valid_select_sqlite", `SELECT name, total FROM orders WHERE total > 100 LIMIT 10`, DialectSQLite, false},
		{"valid_cte_postgres", `WITH recent AS (SELECT * FROM orders) SELECT COUNT(*) FROM recent`, DialectPostgres, false},
		{"valid_top_sqlserver", `SELECT TOP 5 name FROM customers`, DialectSQLServer, false},
		{"empty", "   ", DialectSQLite, true},
		{"not_select", `DELETE FROM orders`, DialectSQLite, true},
		{"multiple_statements", `SELECT 1; DROP TABLE orders`, DialectSQLite, true},
		{"trailing_semicolon_ok", `SELECT 1;`, DialectSQLite, false},
		{"unbalanced_parens", `SELECT COUNT(* FROM orders`, DialectSQLite, true},
		{"unterminated_string", `SELECT * FROM orders WHERE name = 'abc`, DialectSQLite, true},
		{"german_keyword", `SELECT * FROM kunden WHERE abfrage = 1`, DialectPostgres, true},
		{"russian_keyword", `SELECT запрос FROM orders`, DialectPostgres, true},
		{"non_ascii_identifier", `SELECT müller FROM orders`, DialectPostgres, true},
		{"non_ascii_in_literal_ok", `SELECT * FROM orders WHERE city = 'München'`, DialectPostgres, false},
		{"top_in_postgres", `SELECT TOP 5 name FROM customers`, DialectPostgres, true},
		{"limit_in_sqlserver", `SELECT name FROM customers LIMIT 5`, DialectSQLServer, true},
		{"backticks_in_postgres", "SELECT `name` FROM customers", DialectPostgres, true},
		{"backticks_in_mysql_ok", "SELECT `name` FROM customers LIMIT 5", DialectMySQL, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, err := DialectFor(tt.dialect)
			if err != nil {
				t.Fatal(err)
			}
			err = ValidateSQL(tt.sql, dialect)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSQL(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, smarterrors.ErrSQLGenerationFailed) {
				t.Errorf("error %v is not ErrSQLGenerationFailed", err)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"PostgreSQL", DialectPostgres, false},
		{"mssql", DialectSQLServer, false},
		{" mysql ", DialectMySQL, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		d, err := DialectFor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("DialectFor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && d.Name() != tt.want {
			t.Errorf("DialectFor(%q) = %s, want %s", tt.in, d.Name(), tt.want)
		}
	}
}

func TestEnsureRowLimit(t *testing.T) {
	sqlite, _ := DialectFor(DialectSQLite)
	sqlserver, _ := DialectFor(DialectSQLServer)

	tests := []struct {
		name    string
		query   string
		dialect DialectStrategy
		want    string
	}{
		{"appends_limit", "SELECT * FROM t", sqlite, "SELECT * FROM t LIMIT 1000"},
		{"keeps_existing_limit", "SELECT * FROM t LIMIT 5", sqlite, "SELECT * FROM t LIMIT 5"},
		{"strips_semicolon", "SELECT * FROM t;", sqlite, "SELECT * FROM t LIMIT 1000"},
		{"sqlserver_with_order_by", "SELECT * FROM t ORDER BY id", sqlserver,
			"SELECT * FROM t ORDER BY id OFFSET 0 ROWS FETCH NEXT 1000 ROWS ONLY"},
		{"sqlserver_without_order_by", "SELECT * FROM t", sqlserver,
			"SELECT TOP 1000 * FROM (SELECT * FROM t) AS capped"},
		{"sqlserver_keeps_top", "SELECT TOP 3 * FROM t", sqlserver, "SELECT TOP 3 * FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ensureRowLimit(tt.query, tt.dialect, 1000); got != tt.want {
				t.Errorf("ensureRowLimit = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnSanitizer(t *testing.T) {
	s := NewColumnSanitizer([]string{"password", "ssn", "credit_card"})

	if !s.IsSensitive("user_password_hash") {
		t.Error("user_password_hash should be sensitive")
	}
	if s.IsSensitive("username") {
		t.Error("username should not be sensitive")
	}

	columns := []string{"id", "name", "password"}
	rows := [][]any{
		{1, "alice", "hunter2"},
		{2, "bob", nil},
	}
	out := s.SanitizeRows(columns, rows)
	if out[0][2] != RedactedValue {
		t.Errorf("sensitive value = %v, want %q", out[0][2], RedactedValue)
	}
	if out[1][2] != nil {
		t.Errorf("nil value should stay nil, got %v", out[1][2])
	}
	if out[0][1] != "alice" {
		t.Errorf("non-sensitive value changed: %v", out[0][1])
	}
}

func TestStripSQLFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := stripSQLFences(tt.in); got != tt.want {
			t.Errorf("stripSQLFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
