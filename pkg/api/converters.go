package api

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/arnac-io/fundquorum/internal/g"
	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/reconcile"
)

type Receipt struct {
	TxHash     string    `json:"tx_hash"`
	ExecutedAt time.Time `json:"executed_at"`
}

type Transaction struct {
	ID                uint64          `json:"id"`
	Target            string          `json:"target"`
	Value             string          `json:"value"`
	Payload           string          `json:"payload"`
	Kind              string          `json:"kind,omitempty"`
	Params            json.RawMessage `json:"params,omitempty"`
	Description       string          `json:"description"`
	Proposer          string          `json:"proposer"`
	Executed          bool            `json:"executed"`
	CreatedAt         time.Time       `json:"created_at"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty"`
	Confirmations     []string        `json:"confirmations"`
	ConfirmationCount int             `json:"confirmation_count"`
	Required          int             `json:"required"`
	Receipt           *Receipt        `json:"receipt,omitempty"`
}

func encodePayload(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func convertTransaction(tx core.Transaction, required int) Transaction {
	res := Transaction{
		ID:                tx.ID,
		Target:            tx.Target.String(),
		Value:             tx.Value.String(),
		Payload:           encodePayload(tx.Payload),
		Description:       tx.Description,
		Proposer:          tx.Proposer.String(),
		Executed:          tx.Executed,
		CreatedAt:         tx.CreatedAt,
		Confirmations:     g.ToStrings(tx.Confirmations),
		ConfirmationCount: tx.ConfirmationCount,
		Required:          required,
		ExecutedAt:        g.NilIfZero(tx.ExecutedAt),
	}
	if p, err := core.DecodeProposal(tx.Payload); err == nil {
		res.Kind = string(p.Kind())
		res.Params = core.ProposalParams(p)
	}
	if tx.Receipt != nil {
		res.Receipt = &Receipt{TxHash: tx.Receipt.TxHash, ExecutedAt: tx.Receipt.ExecutedAt}
	}
	return res
}

type Transactions struct {
	Transactions []Transaction `json:"transactions"`
}

type Proposed struct {
	ID uint64 `json:"id"`
}

type Check struct {
	ID          uint64     `json:"id"`
	OperationID uint64     `json:"operation_id"`
	Date        uint64     `json:"date"`
	Time        *time.Time `json:"time,omitempty"`
	FN          uint64     `json:"fn"`
	FD          uint64     `json:"fd"`
	FPD         uint64     `json:"fpd"`
}

func convertCheck(c core.Check) Check {
	res := Check{
		ID:          c.ID,
		OperationID: c.OperationID,
		Date:        c.Date,
		FN:          c.FN,
		FD:          c.FD,
		FPD:         c.FPD,
	}
	if t, ok := c.Time(); ok {
		res.Time = &t
	}
	return res
}

type Checks struct {
	Checks []Check `json:"checks"`
}

func convertChecks(in []core.Check) Checks {
	res := Checks{Checks: make([]Check, 0, len(in))}
	for _, c := range in {
		res.Checks = append(res.Checks, convertCheck(c))
	}
	return res
}

type Withdrawal struct {
	OperationID uint64    `json:"operation_id"`
	Token       string    `json:"token"`
	Amount      string    `json:"amount"`
	Recipient   string    `json:"recipient"`
	Mode        string    `json:"mode"`
	Description string    `json:"description"`
	Proposer    string    `json:"proposer"`
	CreatedAt   time.Time `json:"created_at"`
	Confirmed   bool      `json:"confirmed"`
	Checks      []Check   `json:"checks,omitempty"`
}

func convertWithdrawal(op core.WithdrawalOperation, confirmed bool) Withdrawal {
	return Withdrawal{
		OperationID: op.OperationID,
		Token:       op.Token,
		Amount:      op.Amount.String(),
		Recipient:   op.Recipient.String(),
		Mode:        op.Mode.String(),
		Description: op.Description,
		Proposer:    op.Proposer.String(),
		CreatedAt:   op.CreatedAt,
		Confirmed:   confirmed,
	}
}

type Withdrawals struct {
	Withdrawals []Withdrawal `json:"withdrawals"`
}

type Registered struct {
	OperationID uint64 `json:"operation_id"`
}

type Attached struct {
	CheckID uint64 `json:"check_id"`
}

type WithdrawalRecord struct {
	OperationID     uint64 `json:"operation_id"`
	Confirmed       bool   `json:"confirmed"`
	Indexed         bool   `json:"indexed"`
	Token           string `json:"token,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	Offchain        bool   `json:"offchain"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	Description     string `json:"description,omitempty"`
}

type WithdrawalsReport struct {
	Operations  []WithdrawalRecord `json:"operations"`
	Total       int                `json:"total"`
	Unconfirmed int                `json:"unconfirmed"`
	Percent     string             `json:"percent"`
	Stale       bool               `json:"stale"`
	Error       string             `json:"error,omitempty"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
}

func convertReport(r reconcile.Report) WithdrawalsReport {
	res := WithdrawalsReport{
		Operations:  make([]WithdrawalRecord, 0, len(r.Operations)),
		Total:       r.Total,
		Unconfirmed: r.Unconfirmed,
		Percent:     r.Percent,
		Stale:       r.Stale,
		Error:       r.Error,
		UpdatedAt:   g.NilIfZero(r.UpdatedAt),
	}
	if res.Percent == "" {
		res.Percent = "0"
	}
	for _, st := range r.Operations {
		rec := WithdrawalRecord{
			OperationID:     st.OperationID,
			Confirmed:       st.Confirmed,
			Indexed:         st.Indexed,
			Token:           st.Record.Token,
			Offchain:        st.Record.Offchain,
			TransactionHash: st.Record.TransactionHash,
			Description:     st.Record.Description,
		}
		if st.Indexed {
			rec.Amount = st.Record.Amount.String()
			rec.Recipient = st.Record.Recipient.String()
		}
		res.Operations = append(res.Operations, rec)
	}
	return res
}

type Asset struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int32  `json:"decimals"`
	Balance  string `json:"balance"`
}

type Fund struct {
	Address        string `json:"address"`
	Protected      Asset  `json:"protected"`
	SafeAsset      Asset  `json:"safe_asset"`
	Oracle         string `json:"oracle"`
	OraclePrice    string `json:"oracle_price"`
	DepegThreshold string `json:"depeg_threshold"`
	Implementation string `json:"implementation"`
	NativeBalance  string `json:"native_balance"`
}

// nativeDecimals is the precision of the Ledger's native coin.
const nativeDecimals = 18

// convertFund renders raw integer amounts as decimal strings in token units.
func convertFund(f core.FundState) Fund {
	return Fund{
		Address: f.Address.String(),
		Protected: Asset{
			Address:  f.ProtectedAsset.String(),
			Symbol:   f.ProtectedSymbol,
			Decimals: f.ProtectedDecimals,
			Balance:  f.ProtectedBalance.Shift(-f.ProtectedDecimals).String(),
		},
		// evacuation moves protected units one to one
		SafeAsset: Asset{
			Address:  f.SafeAsset.String(),
			Decimals: f.ProtectedDecimals,
			Balance:  f.SafeBalance.Shift(-f.ProtectedDecimals).String(),
		},
		Oracle:         f.SafeAssetOracle.String(),
		OraclePrice:    f.OraclePrice.Shift(-f.OracleDecimals).String(),
		DepegThreshold: f.DepegThreshold.Shift(-f.OracleDecimals).String(),
		Implementation: f.Implementation.String(),
		NativeBalance:  f.NativeBalance.Shift(-nativeDecimals).String(),
	}
}

type DonationPoint struct {
	ID         string    `json:"id"`
	Account    string    `json:"account"`
	Amount     string    `json:"amount"`
	Cumulative string    `json:"cumulative"`
	Timestamp  time.Time `json:"timestamp"`
}

type Donations struct {
	Donations []DonationPoint `json:"donations"`
	Total     string          `json:"total"`
}

func convertDonations(points []reconcile.DonationPoint) Donations {
	res := Donations{Donations: make([]DonationPoint, 0, len(points)), Total: "0"}
	for _, p := range points {
		res.Donations = append(res.Donations, DonationPoint{
			ID:         p.Donation.ID,
			Account:    p.Donation.Account.String(),
			Amount:     p.Donation.Amount.String(),
			Cumulative: p.Cumulative.String(),
			Timestamp:  p.Donation.Timestamp,
		})
		res.Total = p.Cumulative.String()
	}
	return res
}

type Donation struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func convertDonation(d core.Donation) Donation {
	return Donation{
		ID:        d.ID,
		Account:   d.Account.String(),
		Amount:    d.Amount.String(),
		Timestamp: d.Timestamp,
	}
}

type Multisig struct {
	Address  string   `json:"address"`
	Owners   []string `json:"owners"`
	Required int      `json:"required"`
}

func convertMultisig(m core.Multisig) Multisig {
	return Multisig{
		Address:  m.Address.String(),
		Owners:   g.ToStrings(m.Owners),
		Required: m.Required,
	}
}
