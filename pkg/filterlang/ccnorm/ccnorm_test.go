package ccnorm

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestBuiltinNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"paypal", "PAYPAL"},
		{"Ρаypal", "PAYPAL"},
		{"café", "CAFE"},
		{"ＡＢＣ", "ABC"},
		{"g00gle", "GOOGLE"},
		{"", ""},
	}

	p := NewBuiltin(nil)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := p.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuiltinExtraEntries(t *testing.T) {
	p := NewBuiltin(Table{'ß': "SS", '0': "0"})
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := p.Normalize("straße 0"); got != "STRASSE 0" {
		t.Errorf("Normalize = %q, want %q", got, "STRASSE 0")
	}
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable([]byte("\"а\": A\n\"0\": O\n"))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if table['а'] != "A" || table['0'] != "O" {
		t.Errorf("table = %v", table)
	}

	for _, bad := range []string{"ab: X\n", "[1, 2]\n", "\"\": X\n"} {
		if _, err := ParseTable([]byte(bad)); err == nil {
			t.Errorf("ParseTable(%q) succeeded, want an error", bad)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confusables.yaml")
	writeFile(t, path, "\"ß\": SS\n")

	p := NewFile(path, nil)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := p.Normalize("ßр"); got != "SSP" {
		t.Errorf("Normalize = %q, want %q", got, "SSP")
	}

	writeFile(t, path, "\"ß\": B\n")
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := p.Normalize("ß"); got != "B" {
		t.Errorf("after reload Normalize = %q, want %q", got, "B")
	}

	writeFile(t, path, "not: [valid")
	if err := p.Reload(); err == nil {
		t.Errorf("Reload of an invalid file succeeded")
	}
	if got := p.Normalize("ß"); got != "B" {
		t.Errorf("failed reload replaced the table: %q", got)
	}
}

func TestFileProviderMissingFile(t *testing.T) {
	p := NewFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err := p.Initialize(context.Background()); err == nil {
		t.Errorf("Initialize succeeded for a missing file")
	}
}

func TestFileProviderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confusables.yaml")
	writeFile(t, path, "\"ß\": SS\n")

	p := NewFile(path, nil)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer p.Close()

	writeFile(t, path, "\"ß\": Z\n")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p.Normalize("ß") == "Z" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("table was not reloaded after the file changed")
}

func TestSQLProvider(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT source, target FROM confusables").
		WillReturnRows(sqlmock.NewRows([]string{"source", "target"}).
			AddRow("ß", "SS").
			AddRow("ø", "O"))

	p := NewSQL(db, "", nil)
	for i := 0; i < 2; i++ {
		if err := p.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize #%d: %v", i+1, err)
		}
	}
	if got := p.Normalize("ßøо"); got != "SSOO" {
		t.Errorf("Normalize = %q, want %q", got, "SSOO")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSQLProviderRetriesAfterFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	failure := stderrors.New("connection refused")
	mock.ExpectQuery("SELECT a, b FROM pairs").WillReturnError(failure)
	mock.ExpectQuery("SELECT a, b FROM pairs").
		WillReturnRows(sqlmock.NewRows([]string{"a", "b"}).AddRow("ß", "SS"))

	p := NewSQL(db, "SELECT a, b FROM pairs", nil)
	if err := p.Initialize(context.Background()); !stderrors.Is(err, failure) {
		t.Fatalf("first Initialize = %v, want the query error", err)
	}
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if got := p.Normalize("ß"); got != "SS" {
		t.Errorf("Normalize = %q, want %q", got, "SS")
	}
}

func TestSQLProviderRejectsBadRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT source, target FROM confusables").
		WillReturnRows(sqlmock.NewRows([]string{"source", "target"}).AddRow("ab", "X"))

	if err := NewSQL(db, "", nil).Initialize(context.Background()); err == nil {
		t.Errorf("Initialize accepted a multi-character source")
	}
}

func TestDriverRegistration(t *testing.T) {
	drivers := sql.Drivers()
	for _, name := range []string{"sqlite", "postgres", "mysql"} {
		if !slices.Contains(drivers, name) {
			t.Errorf("driver %q is not registered", name)
		}
	}
	if !IsDriver("postgresql") || IsDriver("oracle") {
		t.Errorf("IsDriver aliases wrong")
	}
	if _, err := Open("oracle", ""); err == nil {
		t.Errorf("Open accepted an unknown driver")
	}
}
