package journal_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/journal"
)

var _ = Describe("SQLiteJournal", func() {
	var (
		commandJournal *journal.SQLiteJournal
		issuedAt       time.Time
		ctx            context.Context
	)

	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	BeforeEach(func() {
		var err error
		commandJournal, err = journal.Open(journal.InMemoryPath, 8, &atom)
		Expect(err).To(BeNil())

		issuedAt = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
		ctx = context.Background()
	})

	AfterEach(func() {
		_ = commandJournal.Close()
	})

	It("will satisfy the CommandJournal interface", func() {
		var _ domain.CommandJournal = commandJournal
	})

	It("will write recorded entries and return them newest first", func() {
		commandJournal.Start()

		commandJournal.Record(&domain.JournalEntry{Command: domain.CommandStop, SessionId: 12, EmployeeId: 7, Succeeded: true, IssuedAt: issuedAt, Latency: 40 * time.Millisecond})
		commandJournal.Record(&domain.JournalEntry{Command: domain.CommandRestart, SessionId: 12, EmployeeId: 7, Succeeded: false, Error: "simulator crashed", IssuedAt: issuedAt.Add(time.Second)})
		commandJournal.Flush()

		Expect(commandJournal.NumWritten()).To(Equal(int64(2)))

		entries, err := commandJournal.Recent(ctx, 10)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(2))

		Expect(entries[0].Command).To(Equal(domain.CommandRestart))
		Expect(entries[0].Succeeded).To(BeFalse())
		Expect(entries[0].Error).To(Equal("simulator crashed"))
		Expect(entries[0].IssuedAt).To(BeTemporally("==", issuedAt.Add(time.Second)))
		Expect(entries[0].Id).ToNot(BeEmpty())

		Expect(entries[1].Command).To(Equal(domain.CommandStop))
		Expect(entries[1].SessionId).To(Equal(12))
		Expect(entries[1].EmployeeId).To(Equal(7))
		Expect(entries[1].Succeeded).To(BeTrue())
		Expect(entries[1].Latency).To(Equal(40 * time.Millisecond))
	})

	It("will honour the limit", func() {
		commandJournal.Start()

		for i := 0; i < 5; i++ {
			commandJournal.Record(&domain.JournalEntry{Command: domain.CommandCreate, SessionId: i, Succeeded: true, IssuedAt: issuedAt.Add(time.Duration(i) * time.Second)})
		}
		commandJournal.Flush()

		entries, err := commandJournal.Recent(ctx, 2)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].SessionId).To(Equal(4))
		Expect(entries[1].SessionId).To(Equal(3))

		entries, err = commandJournal.Recent(ctx, 0)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(5))
	})

	It("will drop entries once the queue is full", func() {
		for i := 0; i < 10; i++ {
			commandJournal.Record(&domain.JournalEntry{Command: domain.CommandStopAll, Succeeded: true, IssuedAt: issuedAt})
		}

		Expect(commandJournal.NumDropped()).To(Equal(int64(2)))

		commandJournal.Start()
		commandJournal.Flush()

		Expect(commandJournal.NumWritten()).To(Equal(int64(8)))
	})

	It("will export entries as CSV", func() {
		commandJournal.Start()

		commandJournal.Record(&domain.JournalEntry{Id: "entry-1", Command: domain.CommandDelete, SessionId: 3, Succeeded: true, IssuedAt: issuedAt})
		commandJournal.Flush()

		var buf bytes.Buffer
		Expect(commandJournal.ExportCSV(ctx, &buf)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(HavePrefix("id,command,session_id,employee_id,succeeded,error,issued_at,latency"))
		Expect(lines[1]).To(HavePrefix("entry-1,delete,3,0,true"))
	})

	It("will persist entries across reopening a file-backed journal", func() {
		path := filepath.Join(GinkgoT().TempDir(), "journal.db")

		fileJournal, err := journal.Open(path, 8, &atom)
		Expect(err).To(BeNil())
		fileJournal.Start()
		fileJournal.Record(&domain.JournalEntry{Command: domain.CommandRetrain, Succeeded: true, IssuedAt: issuedAt})
		Expect(fileJournal.Close()).To(Succeed())

		reopened, err := journal.Open(path, 8, &atom)
		Expect(err).To(BeNil())
		defer reopened.Close()

		entries, err := reopened.Recent(ctx, 10)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Command).To(Equal(domain.CommandRetrain))
	})

	It("will refuse to be closed twice", func() {
		commandJournal.Start()
		Expect(commandJournal.Close()).To(Succeed())
		Expect(commandJournal.Close()).To(MatchError(journal.ErrJournalClosed))
	})
})
