package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/usecase/bulkimport"
	"coop-ledger/pkg/id"
)

// TaskBulkImport runs a cooperative savings import in the worker.
const TaskBulkImport = "savings:bulk_import"

type BulkImportPayload struct {
	ImportID    string              `json:"import_id"`
	RequestedBy string              `json:"requested_by"`
	Records     []bulkimport.Record `json:"records"`
}

// Enqueuer is the part of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	enq   Enqueuer
	queue string
}

func NewClient(enq Enqueuer, queue string) *Client {
	return &Client{enq: enq, queue: queue}
}

// NewBulkImportTask builds the task; the import id doubles as task id so
// a resubmitted payload is not queued twice.
func NewBulkImportTask(p BulkImportPayload, queue string) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkImport, body, asynq.Queue(queue), asynq.TaskID(p.ImportID), asynq.MaxRetry(3)), nil
}

// EnqueueImport queues records for the worker and returns the import id.
func (c *Client) EnqueueImport(ctx context.Context, requestedBy string, records []bulkimport.Record) (string, error) {
	p := BulkImportPayload{ImportID: "imp_" + id.NewID32(), RequestedBy: requestedBy, Records: records}
	task, err := NewBulkImportTask(p, c.queue)
	if err != nil {
		return "", fmt.Errorf("build import task: %w", err)
	}
	info, err := c.enq.EnqueueContext(ctx, task)
	if err != nil {
		logrus.WithError(err).WithField("import_id", p.ImportID).Error("enqueue bulk import")
		return "", fmt.Errorf("enqueue import: %w", err)
	}
	logrus.WithFields(logrus.Fields{"import_id": p.ImportID, "task_id": info.ID, "queue": info.Queue}).Info("bulk import queued")
	return p.ImportID, nil
}

type Importer interface {
	Import(ctx context.Context, records []bulkimport.Record) (*bulkimport.Result, error)
}

// Observer receives import outcomes, see metrics.Metrics.
type Observer interface {
	ObserveImport(processed, failed int)
}

type Handler struct {
	importer Importer
	observer Observer
}

func NewHandler(importer Importer, observer Observer) *Handler {
	return &Handler{importer: importer, observer: observer}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskBulkImport, h.HandleBulkImport)
}

// HandleBulkImport runs one queued import. Bad input is not retried; a
// lock held by another import is.
func (h *Handler) HandleBulkImport(ctx context.Context, t *asynq.Task) error {
	var p BulkImportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode import payload: %v: %w", err, asynq.SkipRetry)
	}
	log := logrus.WithFields(logrus.Fields{"import_id": p.ImportID, "requested_by": p.RequestedBy})

	res, err := h.importer.Import(ctx, p.Records)
	if err != nil {
		log.WithError(err).Error("bulk import failed")
		switch apperr.KindOf(err) {
		case apperr.KindFormat, apperr.KindNotFound, apperr.KindValidation:
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if h.observer != nil {
		h.observer.ObserveImport(res.ProcessedCount, res.ErrorCount)
	}
	log.WithFields(logrus.Fields{
		"processed": res.ProcessedCount,
		"errors":    res.ErrorCount,
		"total":     res.Summary.TotalAmount.String(),
	}).Info("bulk import finished")
	return nil
}

// NewServer builds the worker server consuming the import queue.
func NewServer(conn asynq.RedisConnOpt, queue string) *asynq.Server {
	return asynq.NewServer(
		conn,
		asynq.Config{
			Concurrency: 1,
			Queues:      map[string]int{queue: 1},
		},
	)
}
