package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"coop-ledger/internal/adapter/middleware"
	"coop-ledger/internal/usecase/loan"
	"coop-ledger/internal/usecase/report"
)

type LoanHandler struct {
	uc      *loan.Usecase
	reports *report.Usecase
}

func NewLoanHandler(uc *loan.Usecase, reports *report.Usecase) *LoanHandler {
	return &LoanHandler{uc: uc, reports: reports}
}

type applyLoanReq struct {
	CategoryID string          `json:"category_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
}

type confirmLoanReq struct {
	OTP string `json:"otp" validate:"required"`
}

type rejectLoanReq struct {
	Reason string `json:"reason"`
}

type disburseLoanReq struct {
	Schedule []loan.ScheduleItem `json:"schedule" validate:"required,min=1,dive"`
}

func (h *LoanHandler) Apply(c echo.Context) error {
	var req applyLoanReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res, err := h.uc.Apply(c.Request().Context(), loan.ApplyInput{
		MemberID:   middleware.MemberID(c),
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *LoanHandler) Confirm(c echo.Context) error {
	var req confirmLoanReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	l, err := h.uc.Confirm(c.Request().Context(), c.Param("loan_id"), req.OTP, middleware.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Approve and Reject get a result object back; failures carry the
// typed error for the status.
func (h *LoanHandler) Approve(c echo.Context) error {
	res := h.uc.Approve(c.Request().Context(), c.Param("loan_id"), middleware.AdminID(c))
	return respondDecision(c, res)
}

func (h *LoanHandler) Reject(c echo.Context) error {
	var req rejectLoanReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res := h.uc.Reject(c.Request().Context(), c.Param("loan_id"), middleware.AdminID(c), req.Reason)
	return respondDecision(c, res)
}

// respondDecision keeps store failures out of the body, like respondError.
func respondDecision(c echo.Context, res loan.DecisionResult) error {
	if res.Success {
		return c.JSON(http.StatusOK, res)
	}
	status := MapErrorToHTTPStatus(res.Err)
	if status == http.StatusInternalServerError {
		logrus.WithError(res.Err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
		}).Error("loan decision failed")
		res.Error = "internal error"
	}
	return c.JSON(status, res)
}

func (h *LoanHandler) Disburse(c echo.Context) error {
	var req disburseLoanReq
	if resp := bind(c, &req); resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}
	res, err := h.uc.Disburse(c.Request().Context(), loan.DisburseInput{
		LoanID:   c.Param("loan_id"),
		AdminID:  middleware.AdminID(c),
		Schedule: req.Schedule,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) Activate(c echo.Context) error {
	l, err := h.uc.Activate(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) PayRepayment(c echo.Context) error {
	res, err := h.uc.RecordRepayment(c.Request().Context(), c.Param("loan_id"), c.Param("repayment_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) MarkDefaulted(c echo.Context) error {
	l, err := h.uc.MarkDefaulted(c.Request().Context(), c.Param("loan_id"), middleware.AdminID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) Categories(c echo.Context) error {
	cats, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": cats})
}

func (h *LoanHandler) Balance(c echo.Context) error {
	res, err := h.reports.MemberLoanBalance(c.Request().Context(), middleware.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) History(c echo.Context) error {
	res, err := h.reports.MemberLoanHistory(c.Request().Context(), middleware.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": res})
}

func (h *LoanHandler) AdminStats(c echo.Context) error {
	res, err := h.reports.AdminLoanStatistics(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"admins": res})
}

func (h *LoanHandler) List(c echo.Context) error {
	res, err := h.reports.AllLoans(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": res})
}
