// Package recording stores flat Go structs as rows of sqlite tables. It
// backs the sqlite output sink and the benchmark summary database.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"
	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

// ErrFileExists is returned when the target database file is already present.
var ErrFileExists = errors.New("recording: database file already exists")

// ErrUnknownTable is returned when inserting into a table never created.
var ErrUnknownTable = errors.New("recording: unknown table")

// ErrInvalidEntry is returned for entries that are not flat structs of
// scalar fields.
var ErrInvalidEntry = errors.New("recording: entry must be a struct of scalar fields")

// Recorder buffers rows in memory and writes them in one transaction per
// Flush.
type Recorder interface {
	// CreateTable creates a table whose columns are the exported fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error
	// InsertData buffers entry for tableName. Entries must have the type of
	// the table's sample entry.
	InsertData(tableName string, entry any) error
	// ListTables returns the names of all created tables, sorted.
	ListTables() []string
	// Flush writes all buffered entries.
	Flush() error
	// Path returns the database file name.
	Path() string
	Close() error
}

type table struct {
	structType reflect.Type
	columns    int
	entries    []any
}

type sqliteRecorder struct {
	mu sync.Mutex
	db *sql.DB

	path       string
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
	exitFlush  atexit.HandlerID
	log        logrus.FieldLogger
}

// New opens a fresh sqlite database at prefix + ".sqlite3". An empty prefix
// generates a unique name. The recorder is flushed when the program exits
// through atexit.Exit.
func New(prefix string, log logrus.FieldLogger) (Recorder, error) {
	if prefix == "" {
		prefix = "halosim_recording_" + xid.New().String()
	}
	filename := prefix + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	// sqlite allows a single writer; serialise on one connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	r := &sqliteRecorder{
		db:        db,
		path:      filename,
		tables:    make(map[string]*table),
		batchSize: 10000,
		log:       log,
	}
	log.WithField("path", filename).Debug("Database created for recording")

	r.exitFlush = atexit.Register(func() {
		if err := r.Flush(); err != nil {
			log.WithError(err).Warn("flushing recorder at exit")
		}
	})
	return r, nil
}

func (r *sqliteRecorder) Path() string { return r.path }

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}

// checkStructFields rejects anything but a struct whose exported fields
// are all scalars. structs.Names and structs.Values panic on non-structs
// and flatten nested structs, so this runs before either is used.
func checkStructFields(t reflect.Type) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %s", ErrInvalidEntry, t.Kind())
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s is %s", ErrInvalidEntry, field.Name, field.Type.Kind())
		}
	}
	return nil
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) error {
	structType := reflect.TypeOf(sampleEntry)
	if structType == nil {
		return ErrInvalidEntry
	}
	if err := checkStructFields(structType); err != nil {
		return err
	}
	names := structs.Names(sampleEntry)
	if len(names) == 0 {
		return fmt.Errorf("%w: %s has no exported fields", ErrInvalidEntry, structType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[tableName]; exists {
		return fmt.Errorf("recording: table %s already exists", tableName)
	}
	stmt := "CREATE TABLE " + tableName + " (\n\t" + strings.Join(names, ", \n\t") + "\n);"
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}
	r.tables[tableName] = &table{structType: structType, columns: len(names)}
	return nil
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) error {
	r.mu.Lock()
	t, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTable, tableName)
	}
	if reflect.TypeOf(entry) != t.structType {
		r.mu.Unlock()
		return fmt.Errorf("%w: table %s holds %s, got %T", ErrInvalidEntry, tableName, t.structType, entry)
	}
	t.entries = append(t.entries, entry)
	r.entryCount++
	full := r.entryCount >= r.batchSize
	r.mu.Unlock()

	if full {
		return r.Flush()
	}
	return nil
}

func (r *sqliteRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *sqliteRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entryCount == 0 || r.closed {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("recording: begin: %w", err)
	}
	for name, t := range r.tables {
		if len(t.entries) == 0 {
			continue
		}
		if err := insertAll(tx, name, t); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recording: commit: %w", err)
	}
	for _, t := range r.tables {
		t.entries = nil
	}
	r.entryCount = 0
	return nil
}

func insertAll(tx *sql.Tx, name string, t *table) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", t.columns), ", ")
	stmt, err := tx.Prepare("INSERT INTO " + name + " VALUES (" + placeholders + ")")
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", name, err)
		}
	}
	return nil
}

// Close flushes pending entries, drops the exit hook and closes the
// database.
func (r *sqliteRecorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.exitFlush.Cancel(); err != nil {
		r.log.WithError(err).Debug("exit flush already released")
	}
	return r.db.Close()
}
