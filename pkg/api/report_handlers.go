package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
)

// GetWithdrawalsReport serves the last reconciliation. It never waits for the Indexer.
func (h *Handler) GetWithdrawalsReport(ctx context.Context, r *http.Request) (any, error) {
	return convertReport(h.reports.Report()), nil
}

func (h *Handler) GetFund(ctx context.Context, r *http.Request) (any, error) {
	fund, err := h.fund.Fund(ctx)
	if err != nil {
		return nil, core.CollaboratorError(core.ErrLedgerCall, err)
	}
	return convertFund(fund), nil
}

func (h *Handler) GetDonations(ctx context.Context, r *http.Request) (any, error) {
	points, err := h.reports.Donations(ctx)
	if err != nil {
		return nil, err
	}
	return convertDonations(points), nil
}

type DonateRequest struct {
	Donor  string `json:"donor"`
	Amount string `json:"amount"`
}

// Donate sends native coin to the fund. The Indexer picks the donation up on its own schedule.
func (h *Handler) Donate(ctx context.Context, r *http.Request) (any, error) {
	var req DonateRequest
	if err := h.decode(r, &req); err != nil {
		return nil, err
	}
	donor, err := address("donor", req.Donor)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, badRequestf("amount: %v", err)
	}
	donation, err := h.fund.Donate(ctx, donor, amount)
	if err != nil {
		return nil, err
	}
	h.logger.Info("donation received",
		zap.String("donor", donor.String()),
		zap.String("amount", amount.String()))
	return created{convertDonation(donation)}, nil
}

func (h *Handler) GetMultisig(ctx context.Context, r *http.Request) (any, error) {
	return convertMultisig(h.transactions.Multisig()), nil
}
