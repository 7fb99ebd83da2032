package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/parcelio/api/internal/domain"
	pfirestore "github.com/parcelio/api/internal/platform/firestore"
)

const jobLogsCollection = "jobLogs"

// JobLogRepository stores scheduled-job idempotency sentinels. The document id
// is derived from {JobName, Date} so a duplicate run collides on Create.
type JobLogRepository struct {
	base *pfirestore.BaseRepository[jobLogDocument]
}

// NewJobLogRepository constructs a Firestore-backed job log repository.
func NewJobLogRepository(provider *pfirestore.Provider) (*JobLogRepository, error) {
	if provider == nil {
		return nil, errors.New("job log repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[jobLogDocument](provider, jobLogsCollection)
	return &JobLogRepository{base: base}, nil
}

// Create inserts the sentinel atomically. A sentinel already present for the
// same {JobName, Date} yields a conflict.
func (r *JobLogRepository) Create(ctx context.Context, log domain.JobLog) error {
	if r == nil || r.base == nil {
		return errors.New("job log repository not initialised")
	}
	docID, err := jobLogDocumentID(log.JobName, log.Date)
	if err != nil {
		return err
	}
	docRef, err := r.base.DocumentRef(ctx, docID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeJobLogDocument(log)); err != nil {
		return pfirestore.WrapError("jobLogs.create", err)
	}
	return nil
}

// Find fetches the sentinel for the given job and day.
func (r *JobLogRepository) Find(ctx context.Context, jobName string, date time.Time) (domain.JobLog, error) {
	if r == nil || r.base == nil {
		return domain.JobLog{}, errors.New("job log repository not initialised")
	}
	docID, err := jobLogDocumentID(jobName, date)
	if err != nil {
		return domain.JobLog{}, err
	}
	doc, err := r.base.Get(ctx, docID)
	if err != nil {
		return domain.JobLog{}, err
	}
	return decodeJobLogDocument(doc.Data), nil
}

// Update replaces the sentinel, typically to record completion or failure.
func (r *JobLogRepository) Update(ctx context.Context, log domain.JobLog) error {
	if r == nil || r.base == nil {
		return errors.New("job log repository not initialised")
	}
	docID, err := jobLogDocumentID(log.JobName, log.Date)
	if err != nil {
		return err
	}
	return r.base.Set(ctx, docID, encodeJobLogDocument(log))
}

func jobLogDocumentID(jobName string, date time.Time) (string, error) {
	jobName = strings.TrimSpace(jobName)
	if jobName == "" {
		return "", errors.New("job log repository: job name is required")
	}
	if date.IsZero() {
		return "", errors.New("job log repository: date is required")
	}
	return fmt.Sprintf("%s_%s", jobName, date.UTC().Format("2006-01-02")), nil
}

// Document mapping -----------------------------------------------------------

type jobLogDocument struct {
	JobName    string     `firestore:"jobName"`
	Date       time.Time  `firestore:"date"`
	Status     string     `firestore:"status"`
	BatchID    string     `firestore:"batchId,omitempty"`
	StartedAt  time.Time  `firestore:"startedAt"`
	FinishedAt *time.Time `firestore:"finishedAt,omitempty"`
	Orders     int        `firestore:"orders"`
	Businesses int        `firestore:"businesses"`
	LastError  string     `firestore:"lastError,omitempty"`
}

func encodeJobLogDocument(log domain.JobLog) jobLogDocument {
	return jobLogDocument{
		JobName:    strings.TrimSpace(log.JobName),
		Date:       log.Date.UTC(),
		Status:     log.Status,
		BatchID:    log.BatchID,
		StartedAt:  log.StartedAt.UTC(),
		FinishedAt: normalizeTimePointer(log.FinishedAt),
		Orders:     log.Orders,
		Businesses: log.Businesses,
		LastError:  log.LastError,
	}
}

func decodeJobLogDocument(doc jobLogDocument) domain.JobLog {
	return domain.JobLog{
		JobName:    doc.JobName,
		Date:       doc.Date,
		Status:     doc.Status,
		BatchID:    doc.BatchID,
		StartedAt:  doc.StartedAt,
		FinishedAt: doc.FinishedAt,
		Orders:     doc.Orders,
		Businesses: doc.Businesses,
		LastError:  doc.LastError,
	}
}
