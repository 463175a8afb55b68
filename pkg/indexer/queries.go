package indexer

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/shurcooL/graphql"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type withdrawalNode struct {
	Token           string `graphql:"token"`
	Amount          string `graphql:"amount"`
	Recipient       string `graphql:"recipient"`
	Offchain        bool   `graphql:"offchain"`
	OperationID     string `graphql:"operationId"`
	TransactionHash string `graphql:"transactionHash"`
	// the deployed subgraph spells the field this way
	Description string `graphql:"decription"`
}

type checkNode struct {
	ID             string `graphql:"id"`
	OperationID    string `graphql:"operationId"`
	Date           string `graphql:"date"`
	FN             string `graphql:"fn"`
	FD             string `graphql:"fd"`
	FPD            string `graphql:"fpd"`
	BlockTimestamp string `graphql:"blockTimestamp"`
}

type donationNode struct {
	ID             string `graphql:"id"`
	Account        string `graphql:"account"`
	Amount         string `graphql:"amount"`
	BlockTimestamp string `graphql:"blockTimestamp"`
}

// Withdrawals returns every indexed withdrawal ordered by operation id descending.
func (c *Client) Withdrawals(ctx context.Context) ([]core.WithdrawalRecord, error) {
	return cached(ctx, c, c.withdrawals, "withdrawals", c.fetchWithdrawals)
}

func (c *Client) fetchWithdrawals(ctx context.Context) ([]core.WithdrawalRecord, error) {
	var res []core.WithdrawalRecord
	for skip := 0; ; skip += c.pageSize {
		var q struct {
			Items []withdrawalNode `graphql:"withdrawalProtectedAssets(first: $first, skip: $skip, orderBy: operationId, orderDirection: desc)"`
		}
		err := c.query(ctx, &q, map[string]any{
			"first": graphql.Int(c.pageSize),
			"skip":  graphql.Int(skip),
		})
		if err != nil {
			return nil, errors.Wrap(err, "withdrawals")
		}
		for _, n := range q.Items {
			rec, err := n.record()
			if err != nil {
				return nil, err
			}
			res = append(res, rec)
		}
		if len(q.Items) < c.pageSize {
			return res, nil
		}
	}
}

func (n withdrawalNode) record() (core.WithdrawalRecord, error) {
	id, err := parseUint("operationId", n.OperationID)
	if err != nil {
		return core.WithdrawalRecord{}, err
	}
	amount, err := decimal.NewFromString(n.Amount)
	if err != nil {
		return core.WithdrawalRecord{}, errors.Wrapf(err, "withdrawal %d amount", id)
	}
	recipient, err := core.ParseAddress(n.Recipient)
	if err != nil {
		return core.WithdrawalRecord{}, errors.Wrapf(err, "withdrawal %d recipient", id)
	}
	return core.WithdrawalRecord{
		OperationID:     id,
		Token:           n.Token,
		Amount:          amount,
		Recipient:       recipient,
		Offchain:        n.Offchain,
		TransactionHash: n.TransactionHash,
		Description:     n.Description,
	}, nil
}

// Checks returns the checks attached to an operation in the order they were indexed.
func (c *Client) Checks(ctx context.Context, operationID uint64) ([]core.Check, error) {
	key := "checks:" + strconv.FormatUint(operationID, 10)
	return cached(ctx, c, c.checks, key, func(ctx context.Context) ([]core.Check, error) {
		return c.fetchChecks(ctx, operationID)
	})
}

func (c *Client) fetchChecks(ctx context.Context, operationID uint64) ([]core.Check, error) {
	var res []core.Check
	for skip := 0; ; skip += c.pageSize {
		var q struct {
			Items []checkNode `graphql:"addCheckToWithdrawals(where: {operationId: $operationId}, first: $first, skip: $skip, orderBy: blockTimestamp, orderDirection: asc)"`
		}
		err := c.query(ctx, &q, map[string]any{
			"operationId": BigInt(strconv.FormatUint(operationID, 10)),
			"first":       graphql.Int(c.pageSize),
			"skip":        graphql.Int(skip),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "checks of %d", operationID)
		}
		for _, n := range q.Items {
			check, err := n.check(uint64(len(res) + 1))
			if err != nil {
				return nil, err
			}
			res = append(res, check)
		}
		if len(q.Items) < c.pageSize {
			return res, nil
		}
	}
}

func (n checkNode) check(id uint64) (core.Check, error) {
	var (
		check = core.Check{ID: id}
		err   error
	)
	fields := []struct {
		name string
		src  string
		dst  *uint64
	}{
		{"operationId", n.OperationID, &check.OperationID},
		{"date", n.Date, &check.Date},
		{"fn", n.FN, &check.FN},
		{"fd", n.FD, &check.FD},
		{"fpd", n.FPD, &check.FPD},
	}
	for _, f := range fields {
		if *f.dst, err = parseUint(f.name, f.src); err != nil {
			return core.Check{}, err
		}
	}
	if n.BlockTimestamp != "" {
		ts, err := parseUint("blockTimestamp", n.BlockTimestamp)
		if err != nil {
			return core.Check{}, err
		}
		check.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}
	return check, nil
}

// Donations returns every indexed donation, newest first.
func (c *Client) Donations(ctx context.Context) ([]core.Donation, error) {
	return cached(ctx, c, c.donations, "donations", c.fetchDonations)
}

func (c *Client) fetchDonations(ctx context.Context) ([]core.Donation, error) {
	var res []core.Donation
	for skip := 0; ; skip += c.pageSize {
		var q struct {
			Items []donationNode `graphql:"donations(first: $first, skip: $skip, orderBy: blockTimestamp, orderDirection: desc)"`
		}
		err := c.query(ctx, &q, map[string]any{
			"first": graphql.Int(c.pageSize),
			"skip":  graphql.Int(skip),
		})
		if err != nil {
			return nil, errors.Wrap(err, "donations")
		}
		for _, n := range q.Items {
			amount, err := decimal.NewFromString(n.Amount)
			if err != nil {
				return nil, errors.Wrapf(err, "donation %v amount", n.ID)
			}
			account, err := core.ParseAddress(n.Account)
			if err != nil {
				return nil, errors.Wrapf(err, "donation %v account", n.ID)
			}
			ts, err := parseUint("blockTimestamp", n.BlockTimestamp)
			if err != nil {
				return nil, err
			}
			res = append(res, core.Donation{
				ID:        n.ID,
				Account:   account,
				Amount:    amount,
				Timestamp: time.Unix(int64(ts), 0).UTC(),
			})
		}
		if len(q.Items) < c.pageSize {
			return res, nil
		}
	}
}
