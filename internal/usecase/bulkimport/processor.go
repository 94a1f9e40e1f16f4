package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/internal/domain/uow"
	savingsUC "coop-ledger/internal/usecase/savings"
)

var tracer = otel.Tracer("coop-ledger/bulkimport")

// Processor credits payroll deductions to cooperative savings. Bad rows
// are reported and skipped; they never abort the batch.
type Processor struct {
	uow    uow.UnitOfWork
	locker Locker
	now    func() time.Time
}

// NewProcessor builds a processor. A nil locker disables locking.
func NewProcessor(u uow.UnitOfWork, locker Locker) *Processor {
	return &Processor{uow: u, locker: locker, now: func() time.Time { return time.Now().UTC() }}
}

type validRow struct {
	row           int
	serviceNumber string
	amount        decimal.Decimal
	name          string
}

// Import processes the rows in one unit of work, each matched row inside
// its own savepoint. Only structural problems and a missing cooperative
// category are returned as errors.
func (p *Processor) Import(ctx context.Context, records []Record) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Importing cooperative savings")
	defer span.End()
	span.SetAttributes(attribute.Int("import.rows", len(records)))

	if err := checkStructure(records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if p.locker != nil {
		release, err := p.locker.Acquire(ctx, "savings-import:"+string(savings.TypeCooperative))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logrus.WithError(err).Warn("release import lock")
			}
		}()
	}

	res := &Result{Errors: []RowError{}, Summary: Summary{TotalAmount: decimal.Zero}}
	valid := make([]validRow, 0, len(records))
	for i, rec := range records {
		row := i + 2
		sn := strings.TrimSpace(rec.lookup(serviceNumberColumns))
		if sn == "" {
			res.addError(RowError{Row: row, Error: "service number is required"})
			continue
		}
		amount, ok := parseAmount(rec.lookup(amountColumns))
		if !ok {
			res.addError(RowError{Row: row, ServiceNumber: sn, Error: "valid amount is required"})
			continue
		}
		valid = append(valid, validRow{row: row, serviceNumber: sn, amount: amount, name: strings.TrimSpace(rec.lookup(nameColumns))})
	}
	res.Summary.ValidRecords = len(valid)
	res.Summary.InvalidRecords = len(res.Errors)

	err := p.uow.WithinTx(ctx, func(r uow.Repos) error {
		cat, err := r.Savings.GetCategoryByType(ctx, savings.TypeCooperative)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound("cooperative savings category not found")
			}
			return err
		}
		at := p.now()
		for _, v := range valid {
			err := r.Nested(ctx, func(sr uow.Repos) error {
				return p.credit(ctx, sr, cat, v, at)
			})
			if err != nil {
				res.addError(RowError{Row: v.row, ServiceNumber: v.serviceNumber, Error: message(err)})
				continue
			}
			res.ProcessedCount++
			res.Summary.TotalAmount = res.Summary.TotalAmount.Add(v.amount)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.ErrorCount = len(res.Errors)
	res.Success = res.ProcessedCount > 0
	res.Message = fmt.Sprintf("Processed %d records with %d errors", res.ProcessedCount, res.ErrorCount)
	for _, e := range res.Errors {
		logrus.WithFields(logrus.Fields{"row": e.Row, "service_number": e.ServiceNumber}).Warn("import row skipped: " + e.Error)
	}
	span.SetAttributes(attribute.Int("import.processed", res.ProcessedCount), attribute.Int("import.errors", res.ErrorCount))
	return res, nil
}

func (p *Processor) credit(ctx context.Context, r uow.Repos, cat *savings.Category, v validRow, at time.Time) error {
	m, err := r.Members.GetByServiceNumber(ctx, v.serviceNumber)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("member with this service number not found")
		}
		return err
	}
	if v.name != "" && !namesMatch(m.FullName(), v.name) {
		return apperr.Validation("name mismatch: expected '%s', found '%s'", strings.ToLower(m.FullName()), v.name)
	}
	_, err = savingsUC.WriteMovement(ctx, r, savingsUC.Movement{
		MemberID:    m.MemberID,
		Category:    cat,
		Amount:      v.amount,
		Type:        ledger.TypeSavingsDeposit,
		Description: fmt.Sprintf("Cooperative savings deduction from external bank account (Service No: %s)", v.serviceNumber),
		At:          at,
	})
	return err
}

func (r *Result) addError(e RowError) { r.Errors = append(r.Errors, e) }

func checkStructure(records []Record) error {
	if len(records) == 0 {
		return apperr.Format("import contains no data rows")
	}
	first := records[0]
	if !first.hasColumn(serviceNumberColumns) || !first.hasColumn(amountColumns) {
		return apperr.Format("import is missing required columns (Service Number and Amount)")
	}
	return nil
}

// parseAmount accepts thousands separators and surrounding whitespace.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// namesMatch is a case-insensitive containment check in either direction.
func namesMatch(full, provided string) bool {
	f, p := strings.ToLower(full), strings.ToLower(provided)
	return strings.Contains(f, p) || strings.Contains(p, f)
}

func message(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
