package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"coop-ledger/internal/adapter/middleware"
	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/usecase/bulkimport"
	"coop-ledger/internal/usecase/report"
	"coop-ledger/internal/usecase/savings"
)

// Uploads above this size are refused before parsing.
const maxImportBytes = 10 << 20

type Importer interface {
	Import(ctx context.Context, records []bulkimport.Record) (*bulkimport.Result, error)
}

// ImportQueue hands an import to the background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, requestedBy string, records []bulkimport.Record) (string, error)
}

type ImportObserver interface {
	ObserveImport(processed, failed int)
}

type SavingsHandler struct {
	uc       *savings.Usecase
	reports  *report.Usecase
	importer Importer
	queue    ImportQueue
	observer ImportObserver
}

// NewSavingsHandler wires the savings routes. queue and observer may be nil.
func NewSavingsHandler(uc *savings.Usecase, reports *report.Usecase, importer Importer, queue ImportQueue, observer ImportObserver) *SavingsHandler {
	return &SavingsHandler{uc: uc, reports: reports, importer: importer, queue: queue, observer: observer}
}

type depositReq struct {
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
}

type withdrawReq struct {
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
	PIN      string          `json:"pin" validate:"required"`
}

type adjustReq struct {
	MemberID string          `json:"member_id" validate:"required,hex32"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required,dec2"`
	Reason   string          `json:"reason"`
}

type deductionReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0,dec2"`
}

func (h *SavingsHandler) Deposit(c echo.Context) error {
	var req depositReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res, err := h.uc.Deposit(c.Request().Context(), savings.DepositInput{
		MemberID:     middleware.MemberID(c),
		CategoryName: req.Category,
		Amount:       req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *SavingsHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res, err := h.uc.Withdraw(c.Request().Context(), savings.WithdrawInput{
		MemberID:     middleware.MemberID(c),
		CategoryName: req.Category,
		Amount:       req.Amount,
		PIN:          req.PIN,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *SavingsHandler) Adjust(c echo.Context) error {
	var req adjustReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res, err := h.uc.Adjust(c.Request().Context(), savings.AdjustInput{
		MemberID:     req.MemberID,
		CategoryName: req.Category,
		Amount:       req.Amount,
		AdminID:      middleware.AdminID(c),
		Reason:       req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *SavingsHandler) EditDeduction(c echo.Context) error {
	var req deductionReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	m, err := h.uc.EditDeduction(c.Request().Context(), middleware.MemberID(c), req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *SavingsHandler) Total(c echo.Context) error {
	memberID := middleware.MemberID(c)
	total, err := h.uc.TotalSavings(c.Request().Context(), memberID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"member_id": memberID, "total_savings": total})
}

func (h *SavingsHandler) Balance(c echo.Context) error {
	res, err := h.reports.SavingsBalance(c.Request().Context(), middleware.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *SavingsHandler) List(c echo.Context) error {
	res, err := h.uc.ListSavings(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Import takes a multipart "file" (CSV or JSON). With ?async=true the
// rows are queued and the response is 202 with the import id.
func (h *SavingsHandler) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
	}
	if fh.Size > maxImportBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable file"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable file"})
	}

	records, err := bulkimport.Parse(fh.Filename, data)
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	if async, _ := strconv.ParseBool(c.QueryParam("async")); async {
		if h.queue == nil {
			return respondError(c, apperr.Validation("asynchronous import is not enabled"))
		}
		importID, err := h.queue.EnqueueImport(ctx, middleware.AdminID(c), records)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]any{"import_id": importID, "records": len(records)})
	}

	res, err := h.importer.Import(ctx, records)
	if err != nil {
		return respondError(c, err)
	}
	if h.observer != nil {
		h.observer.ObserveImport(res.ProcessedCount, res.ErrorCount)
	}
	return c.JSON(http.StatusOK, res)
}
