package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type Handler struct {
	logger       *zap.Logger
	transactions transactions
	withdrawals  withdrawals
	reports      reports
	fund         fundLedger
	limits       Limits
}

// Options configures Handler.
type Options struct {
	transactions transactions
	withdrawals  withdrawals
	reports      reports
	fund         fundLedger
	limits       Limits
}

type Option func(o *Options)

func WithTransactions(t transactions) Option {
	return func(o *Options) {
		o.transactions = t
	}
}

func WithWithdrawals(w withdrawals) Option {
	return func(o *Options) {
		o.withdrawals = w
	}
}

func WithReports(r reports) Option {
	return func(o *Options) {
		o.reports = r
	}
}

func WithFund(f fundLedger) Option {
	return func(o *Options) {
		o.fund = f
	}
}

func WithLimits(limits Limits) Option {
	return func(o *Options) {
		o.limits = limits
	}
}

func NewHandler(logger *zap.Logger, opts ...Option) (*Handler, error) {
	options := &Options{}
	for _, o := range opts {
		o(options)
	}
	if options.transactions == nil {
		return nil, errors.New("transactions are not configured")
	}
	if options.withdrawals == nil {
		return nil, errors.New("withdrawals are not configured")
	}
	if options.reports == nil {
		return nil, errors.New("reports are not configured")
	}
	if options.fund == nil {
		return nil, errors.New("fund reader is not configured")
	}
	return &Handler{
		logger:       logger,
		transactions: options.transactions,
		withdrawals:  options.withdrawals,
		reports:      options.reports,
		fund:         options.fund,
		limits:       options.limits,
	}, nil
}

func (h *Handler) register(r *router) {
	r.POST("/v1/transactions", h.ProposeTransaction)
	r.GET("/v1/transactions", h.GetTransactions)
	r.GET("/v1/transactions/:id", h.GetTransaction)
	r.POST("/v1/transactions/:id/confirm", h.ConfirmTransaction)
	r.POST("/v1/transactions/:id/revoke", h.RevokeTransaction)
	r.POST("/v1/transactions/:id/execute", h.ExecuteTransaction)

	r.GET("/v1/withdrawals", h.GetWithdrawals)
	r.POST("/v1/withdrawals", h.RegisterWithdrawal)
	r.GET("/v1/withdrawals/:id", h.GetWithdrawal)
	r.GET("/v1/withdrawals/:id/checks", h.GetWithdrawalChecks)
	r.POST("/v1/withdrawals/:id/checks", h.AttachCheck)

	r.GET("/v1/reports/withdrawals", h.GetWithdrawalsReport)
	r.GET("/v1/fund", h.GetFund)
	r.GET("/v1/donations", h.GetDonations)
	r.POST("/v1/donations", h.Donate)
	r.GET("/v1/multisig", h.GetMultisig)
}

func (h *Handler) decode(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, h.limits.maxBodyBytes())
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequestf("invalid request body: %v", err)
	}
	return nil
}

func idParam(ctx context.Context) (uint64, error) {
	raw := param(ctx, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequestf("invalid id %q", raw)
	}
	return id, nil
}

func owner(r *http.Request) (core.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderOwner))
	if raw == "" {
		return "", errors.Wrap(core.ErrNotOwner, "missing "+HeaderOwner+" header")
	}
	addr, err := core.ParseAddress(raw)
	if err != nil {
		return "", badRequest(err)
	}
	return addr, nil
}

func address(name, raw string) (core.Address, error) {
	addr, err := core.ParseAddress(raw)
	if err != nil {
		return "", badRequestf("%s: %v", name, err)
	}
	return addr, nil
}
