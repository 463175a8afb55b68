package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type RegisterWithdrawalRequest struct {
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	Mode        string `json:"mode"`
	Description string `json:"description,omitempty"`
}

type AttachCheckRequest struct {
	Date uint64 `json:"date"`
	FN   uint64 `json:"fn"`
	FD   uint64 `json:"fd"`
	FPD  uint64 `json:"fpd"`
}

func (h *Handler) RegisterWithdrawal(ctx context.Context, r *http.Request) (any, error) {
	proposer, err := owner(r)
	if err != nil {
		return nil, err
	}
	var req RegisterWithdrawalRequest
	if err := h.decode(r, &req); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, badRequestf("amount: %v", err)
	}
	recipient, err := address("recipient", req.Recipient)
	if err != nil {
		return nil, err
	}
	mode, err := core.ParseWithdrawalMode(req.Mode)
	if err != nil {
		return nil, err
	}
	id, err := h.withdrawals.RegisterWithdrawal(ctx, proposer, req.Token, amount, recipient, mode, req.Description)
	if err != nil {
		return nil, err
	}
	return created{Registered{OperationID: id}}, nil
}

func (h *Handler) GetWithdrawals(ctx context.Context, r *http.Request) (any, error) {
	ops := h.withdrawals.Operations()
	res := Withdrawals{Withdrawals: make([]Withdrawal, 0, len(ops))}
	for _, op := range ops {
		confirmed, err := h.withdrawals.IsConfirmed(op.OperationID)
		if err != nil {
			return nil, err
		}
		res.Withdrawals = append(res.Withdrawals, convertWithdrawal(op, confirmed))
	}
	return res, nil
}

func (h *Handler) GetWithdrawal(ctx context.Context, r *http.Request) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	op, err := h.withdrawals.Get(id)
	if err != nil {
		return nil, err
	}
	confirmed, err := h.withdrawals.IsConfirmed(id)
	if err != nil {
		return nil, err
	}
	checks, err := h.withdrawals.Checks(id)
	if err != nil {
		return nil, err
	}
	res := convertWithdrawal(op, confirmed)
	res.Checks = convertChecks(checks).Checks
	return res, nil
}

func (h *Handler) AttachCheck(ctx context.Context, r *http.Request) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := owner(r); err != nil {
		return nil, err
	}
	var req AttachCheckRequest
	if err := h.decode(r, &req); err != nil {
		return nil, err
	}
	checkID, err := h.withdrawals.AttachCheck(ctx, id, req.Date, req.FN, req.FD, req.FPD)
	if err != nil {
		return nil, err
	}
	return created{Attached{CheckID: checkID}}, nil
}

// GetWithdrawalChecks reads the checks the Indexer has seen for an operation.
func (h *Handler) GetWithdrawalChecks(ctx context.Context, r *http.Request) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	checks, err := h.reports.Checks(ctx, id)
	if err != nil {
		return nil, err
	}
	return convertChecks(checks), nil
}
