package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/i18n"
)

type ProposeRequest struct {
	// Kind selects a known fund operation, Payload is used for raw calls otherwise.
	Kind        string          `json:"kind,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	Target      string          `json:"target,omitempty"`
	Value       string          `json:"value,omitempty"`
	Payload     string          `json:"payload,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (h *Handler) ProposeTransaction(ctx context.Context, r *http.Request) (any, error) {
	proposer, err := owner(r)
	if err != nil {
		return nil, err
	}
	var req ProposeRequest
	if err := h.decode(r, &req); err != nil {
		return nil, err
	}
	value := decimal.Zero
	if req.Value != "" {
		if value, err = decimal.NewFromString(req.Value); err != nil {
			return nil, badRequestf("value: %v", err)
		}
	}
	lang := r.Header.Get("Accept-Language")

	if req.Kind == "" {
		if req.Target == "" {
			return nil, badRequestf("target is required for a raw call")
		}
		target, err := address("target", req.Target)
		if err != nil {
			return nil, err
		}
		payload, err := hex.DecodeString(strings.TrimPrefix(req.Payload, "0x"))
		if err != nil {
			return nil, badRequestf("payload: %v", err)
		}
		description := req.Description
		if description == "" {
			description = i18n.T(lang, i18n.C{
				MessageID:    "rawCall",
				TemplateData: map[string]any{"Target": target.String()},
			})
		}
		id, err := h.transactions.Propose(ctx, proposer, target, value, payload, description)
		if err != nil {
			return nil, err
		}
		return created{Proposed{ID: id}}, nil
	}

	p, err := core.ParseProposal(core.ProposalKind(req.Kind), req.Params)
	if err != nil {
		return nil, err
	}
	target, err := h.defaultTarget(ctx, p)
	if err != nil {
		return nil, err
	}
	if req.Target != "" {
		if target, err = address("target", req.Target); err != nil {
			return nil, err
		}
	}
	description := req.Description
	if description == "" {
		description = describe(lang, p)
	}
	id, err := h.transactions.ProposeKind(ctx, proposer, target, value, p, description)
	if err != nil {
		return nil, err
	}
	return created{Proposed{ID: id}}, nil
}

// defaultTarget is the multisig itself for threshold changes and the fund for everything else.
func (h *Handler) defaultTarget(ctx context.Context, p core.Proposal) (core.Address, error) {
	if p.Kind() == core.KindChangeRequirement {
		return h.transactions.Multisig().Address, nil
	}
	fund, err := h.fund.Fund(ctx)
	if err != nil {
		return "", core.CollaboratorError(core.ErrLedgerCall, err)
	}
	return fund.Address, nil
}

func describe(lang string, p core.Proposal) string {
	var data map[string]any
	switch p := p.(type) {
	case *core.ConfirmWithdrawal:
		data = map[string]any{"OperationID": p.OperationID}
	case *core.ChangeRequirement:
		data = map[string]any{"Required": p.Required}
	}
	return i18n.T(lang, i18n.C{
		MessageID:    string(p.Kind()),
		TemplateData: data,
	})
}

// GetTransactions lists transactions by status. Only pending transactions are listed.
func (h *Handler) GetTransactions(ctx context.Context, r *http.Request) (any, error) {
	if status := r.URL.Query().Get("status"); status != "" && status != "pending" {
		return nil, badRequestf("unsupported status %q", status)
	}
	pending := h.transactions.PendingTransactions()
	res := Transactions{Transactions: make([]Transaction, 0, len(pending))}
	for _, tx := range pending {
		res.Transactions = append(res.Transactions, convertTransaction(tx.Transaction, tx.Required))
	}
	return res, nil
}

func (h *Handler) GetTransaction(ctx context.Context, r *http.Request) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := h.transactions.Get(id)
	if err != nil {
		return nil, err
	}
	return convertTransaction(tx, h.transactions.Multisig().Required), nil
}

func (h *Handler) ConfirmTransaction(ctx context.Context, r *http.Request) (any, error) {
	return h.ownerAction(ctx, r, h.transactions.Confirm)
}

func (h *Handler) RevokeTransaction(ctx context.Context, r *http.Request) (any, error) {
	return h.ownerAction(ctx, r, h.transactions.Revoke)
}

func (h *Handler) ownerAction(ctx context.Context, r *http.Request, action func(context.Context, uint64, core.Address) (core.Transaction, error)) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	who, err := owner(r)
	if err != nil {
		return nil, err
	}
	tx, err := action(ctx, id, who)
	if err != nil {
		return nil, err
	}
	return convertTransaction(tx, h.transactions.Multisig().Required), nil
}

func (h *Handler) ExecuteTransaction(ctx context.Context, r *http.Request) (any, error) {
	id, err := idParam(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := h.transactions.Execute(ctx, id)
	if err != nil {
		return nil, err
	}
	return convertTransaction(tx, h.transactions.Multisig().Required), nil
}
