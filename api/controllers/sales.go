package controllers

import (
	"net/http"

	"github.com/dimasprayoga/tokopos-backend/api/responses"
	"github.com/dimasprayoga/tokopos-backend/api/validators"
	"github.com/dimasprayoga/tokopos-backend/internal/ledger"
	"github.com/dimasprayoga/tokopos-backend/internal/settlement"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	pkgerrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
)

// CommitSale records a sale: transaction, line items, and stock decrements
// land atomically or not at all.
func CommitSale(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ledger.CommitSaleInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transaction, err := svc.CommitSale(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transaction)
	}
}

func GetSale(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transaction, err := svc.GetSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transaction)
	}
}

func ListSales(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := saleFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSales(r.Context(), filter, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RecordPayment applies a settlement against a credit sale.
func RecordPayment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := validators.PathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settlement.RecordPaymentInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.TransactionID = transactionID

		payment, err := svc.RecordPayment(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func ListSalePayments(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := validators.PathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments, err := svc.ListPayments(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments)
	}
}

func saleFilterFromQuery(r *http.Request) (ledger.ListFilter, error) {
	var filter ledger.ListFilter

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filter, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filter, err
	}
	customerID, err := validators.ParseQueryUUID(r, "customer_id")
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to
	filter.CustomerID = customerID

	if raw := validators.ParseQueryString(r, "status"); raw != nil {
		status := enums.PaymentStatus(*raw)
		if !status.IsValid() {
			return filter, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment status %q", *raw)
		}
		filter.Status = &status
	}
	if raw := validators.ParseQueryString(r, "method"); raw != nil {
		method, err := enums.ParsePaymentMethod(*raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		filter.Method = &method
	}
	return filter, nil
}
