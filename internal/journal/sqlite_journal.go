package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enriquebris/goconcurrentqueue"
	"github.com/google/uuid"
	"github.com/mattn/go-colorable"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zhangjyr/gocsv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	InMemoryPath = ":memory:"

	DefaultQueueCapacity = 256
)

var (
	ErrJournalClosed = errors.New("command journal is closed")
)

// SQLiteJournal records operator commands in a SQLite database.
//
// Record never blocks on the database: entries are placed on a bounded queue and written by a single background
// goroutine. Entries are dropped, and counted, when the queue is full.
type SQLiteJournal struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	db      *sql.DB
	queue   *goconcurrentqueue.FixedFIFO
	pending sync.WaitGroup // Tracks entries that have been enqueued but not yet written.

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
	closed  atomic.Bool

	numWritten atomic.Int64
	numDropped atomic.Int64
	numFailed  atomic.Int64
}

// Open opens, creating it if necessary, the journal database at path. Use InMemoryPath for a journal that is
// discarded when closed.
func Open(path string, capacity int, atom *zap.AtomicLevel) (*SQLiteJournal, error) {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	dsn := path
	if path != InMemoryPath {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open command journal: %w", err)
	}

	// Every connection to ":memory:" opens its own database.
	if path == InMemoryPath {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	journal := &SQLiteJournal{
		db:     db,
		queue:  goconcurrentqueue.NewFixedFIFO(capacity),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		atom:   atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for command journal")
	}

	journal.logger = logger
	journal.sugaredLogger = logger.Sugar()

	if err = journal.migrate(); err != nil {
		_ = db.Close()
		cancel()
		return nil, fmt.Errorf("failed to migrate command journal: %w", err)
	}

	return journal, nil
}

func (j *SQLiteJournal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			session_id INTEGER NOT NULL DEFAULT 0,
			employee_id INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			issued_at INTEGER NOT NULL,
			latency_ns INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_issued_at ON commands(issued_at)`,
	}

	for _, migration := range migrations {
		if _, err := j.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// Start launches the background writer. Entries recorded before Start are written once it runs.
func (j *SQLiteJournal) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}

	go j.writeLoop()
}

// Record enqueues the entry for writing, assigning it an ID if it has none.
func (j *SQLiteJournal) Record(entry *domain.JournalEntry) {
	if entry == nil {
		return
	}

	if j.closed.Load() {
		j.numDropped.Add(1)
		j.logger.Warn("Dropping journal entry recorded after the journal was closed.", zap.String("command", entry.Command.String()))
		return
	}

	if entry.Id == "" {
		entry.Id = uuid.NewString()
	}

	j.pending.Add(1)
	if err := j.queue.Enqueue(entry); err != nil {
		j.pending.Done()
		j.numDropped.Add(1)
		j.logger.Warn("Journal queue is full. Dropping entry.",
			zap.String("entry_id", entry.Id),
			zap.String("command", entry.Command.String()),
			zap.Int("queue_length", j.queue.GetLen()),
			zap.Error(err))
	}
}

// Flush blocks until every entry enqueued so far has been written (or has failed to be written).
// The writer must have been started.
func (j *SQLiteJournal) Flush() {
	j.pending.Wait()
}

// Close stops the writer after it drains the queue, and closes the database.
func (j *SQLiteJournal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return ErrJournalClosed
	}

	if j.started.Load() {
		j.pending.Wait()
		j.cancel()
		<-j.done
	} else {
		j.cancel()
	}

	return j.db.Close()
}

func (j *SQLiteJournal) NumWritten() int64 {
	return j.numWritten.Load()
}

func (j *SQLiteJournal) NumDropped() int64 {
	return j.numDropped.Load()
}

func (j *SQLiteJournal) writeLoop() {
	defer close(j.done)

	for {
		val, err := j.queue.DequeueOrWaitForNextElementContext(j.ctx)
		if err != nil {
			if j.ctx.Err() != nil {
				return
			}

			j.logger.Error("Failed to dequeue journal entry.", zap.Error(err))
			continue
		}

		entry := val.(*domain.JournalEntry)
		if err = j.write(entry); err != nil {
			j.numFailed.Add(1)
			j.logger.Error("Failed to write journal entry.", zap.String("entry_id", entry.Id), zap.Error(err))
		} else {
			j.numWritten.Add(1)
		}

		j.pending.Done()
	}
}

func (j *SQLiteJournal) write(entry *domain.JournalEntry) error {
	succeeded := 0
	if entry.Succeeded {
		succeeded = 1
	}

	_, err := j.db.Exec(
		`INSERT INTO commands (id, command, session_id, employee_id, succeeded, error, issued_at, latency_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Id, string(entry.Command), entry.SessionId, entry.EmployeeId, succeeded, entry.Error,
		entry.IssuedAt.UnixNano(), int64(entry.Latency))

	return err
}

// Recent returns up to limit entries, newest first. A limit of zero or less returns every entry.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, command, session_id, employee_id, succeeded, error, issued_at, latency_ns
		 FROM commands ORDER BY issued_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.JournalEntry, 0)
	for rows.Next() {
		var (
			entry     domain.JournalEntry
			command   string
			succeeded int
			issuedAt  int64
			latency   int64
		)

		if err = rows.Scan(&entry.Id, &command, &entry.SessionId, &entry.EmployeeId, &succeeded, &entry.Error, &issuedAt, &latency); err != nil {
			return nil, err
		}

		entry.Command = domain.Command(command)
		entry.Succeeded = succeeded == 1
		entry.IssuedAt = time.Unix(0, issuedAt).UTC()
		entry.Latency = time.Duration(latency)

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// ExportCSV writes every entry, newest first, to w as CSV.
func (j *SQLiteJournal) ExportCSV(ctx context.Context, w io.Writer) error {
	entries, err := j.Recent(ctx, 0)
	if err != nil {
		return err
	}

	return gocsv.Marshal(entries, w)
}
