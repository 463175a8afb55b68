package core

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ProposalKind names a privileged fund operation that owners can propose.
type ProposalKind string

const (
	KindConvertEthToProtectedAsset ProposalKind = "convertEthToProtectedAsset"
	KindSetSafeAsset               ProposalKind = "setSafeAsset"
	KindSetDepegThreshold          ProposalKind = "setDepegThreshold"
	KindConfirmWithdrawal          ProposalKind = "confirmWithdrawal"
	KindUpgradeTo                  ProposalKind = "upgradeTo"
	KindEvacuateIfDepegged         ProposalKind = "evacuateIfDepegged"
	KindChangeRequirement          ProposalKind = "changeRequirement"
)

// Proposal is a tagged variant resolved into an opaque payload by EncodeProposal.
// All implementations are pointers to the parameter structs below.
type Proposal interface {
	Kind() ProposalKind
	Validate() error
	writeParams(e *jx.Encoder)
	readParams(d *jx.Decoder) error
}

type kindSpec struct {
	signature string
	selector  [4]byte
	new       func() Proposal
}

var kinds = map[ProposalKind]*kindSpec{
	KindConvertEthToProtectedAsset: {signature: "convertEthToProtectedAsset(uint256)", new: func() Proposal { return &ConvertEthToProtectedAsset{} }},
	KindSetSafeAsset:               {signature: "setSafeAsset(address,address)", new: func() Proposal { return &SetSafeAsset{} }},
	KindSetDepegThreshold:          {signature: "setDepegThreshold(uint256)", new: func() Proposal { return &SetDepegThreshold{} }},
	KindConfirmWithdrawal:          {signature: "confirmWithdrawal(uint256)", new: func() Proposal { return &ConfirmWithdrawal{} }},
	KindUpgradeTo:                  {signature: "upgradeTo(address)", new: func() Proposal { return &UpgradeTo{} }},
	KindEvacuateIfDepegged:         {signature: "evacuateIfDepegged(uint256,uint256,uint256,uint256)", new: func() Proposal { return &EvacuateIfDepegged{} }},
	KindChangeRequirement:          {signature: "changeRequirement(uint256)", new: func() Proposal { return &ChangeRequirement{} }},
}

var kindsBySelector = map[[4]byte]ProposalKind{}

func init() {
	for kind, spec := range kinds {
		binary.BigEndian.PutUint32(spec.selector[:], uint32(xxhash.Sum64String(spec.signature)))
		if prev, ok := kindsBySelector[spec.selector]; ok {
			panic("selector collision between " + string(prev) + " and " + string(kind))
		}
		kindsBySelector[spec.selector] = kind
	}
}

// Signature returns the canonical call signature of the kind, or "" for unknown kinds.
func (k ProposalKind) Signature() string {
	if spec, ok := kinds[k]; ok {
		return spec.signature
	}
	return ""
}

func (k ProposalKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// EncodeProposal validates p and produces the payload: 4-byte selector followed by
// the JSON-encoded parameters.
func EncodeProposal(p Proposal) ([]byte, error) {
	spec, ok := kinds[p.Kind()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProposal, "%q", p.Kind())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var e jx.Encoder
	p.writeParams(&e)
	payload := make([]byte, 0, 4+len(e.Bytes()))
	payload = append(payload, spec.selector[:]...)
	return append(payload, e.Bytes()...), nil
}

// DecodeProposal resolves a payload produced by EncodeProposal.
// Payloads with unknown selectors fail with ErrUnknownProposal.
func DecodeProposal(payload []byte) (Proposal, error) {
	if len(payload) < 4 {
		return nil, errors.Wrap(ErrUnknownProposal, "payload too short")
	}
	var selector [4]byte
	copy(selector[:], payload[:4])
	kind, ok := kindsBySelector[selector]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProposal, "selector %x", selector)
	}
	return ParseProposal(kind, payload[4:])
}

// ParseProposal builds a proposal of the given kind from its JSON parameters.
func ParseProposal(kind ProposalKind, params []byte) (Proposal, error) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProposal, "%q", kind)
	}
	p := spec.new()
	if len(params) > 0 {
		if err := p.readParams(jx.DecodeBytes(params)); err != nil {
			return nil, errors.Wrapf(ErrUnknownProposal, "%v params: %v", kind, err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ProposalParams renders the parameters of p as a JSON object.
func ProposalParams(p Proposal) []byte {
	var e jx.Encoder
	p.writeParams(&e)
	return e.Bytes()
}

type ConvertEthToProtectedAsset struct {
	MinAmountOut decimal.Decimal
}

type SetSafeAsset struct {
	Asset  Address
	Oracle Address
}

type SetDepegThreshold struct {
	Threshold decimal.Decimal
}

type ConfirmWithdrawal struct {
	OperationID uint64
}

type UpgradeTo struct {
	Implementation Address
}

type EvacuateIfDepegged struct {
	EvacuationMinReturn   decimal.Decimal
	FlashLoanAmount       decimal.Decimal
	ManipulationMinReturn decimal.Decimal
	SimpleSwapMinReturn   decimal.Decimal
}

type ChangeRequirement struct {
	Required int
}

func (*ConvertEthToProtectedAsset) Kind() ProposalKind { return KindConvertEthToProtectedAsset }
func (*SetSafeAsset) Kind() ProposalKind               { return KindSetSafeAsset }
func (*SetDepegThreshold) Kind() ProposalKind          { return KindSetDepegThreshold }
func (*ConfirmWithdrawal) Kind() ProposalKind          { return KindConfirmWithdrawal }
func (*UpgradeTo) Kind() ProposalKind                  { return KindUpgradeTo }
func (*EvacuateIfDepegged) Kind() ProposalKind         { return KindEvacuateIfDepegged }
func (*ChangeRequirement) Kind() ProposalKind          { return KindChangeRequirement }

func (p *ConvertEthToProtectedAsset) Validate() error {
	return validateUint("minAmountOut", p.MinAmountOut)
}

func (p *SetSafeAsset) Validate() error {
	if p.Asset.IsZero() {
		return errors.Wrap(ErrInvalidTarget, "safe asset")
	}
	if p.Oracle.IsZero() {
		return errors.Wrap(ErrInvalidTarget, "safe asset oracle")
	}
	return nil
}

func (p *SetDepegThreshold) Validate() error {
	return validateUint("threshold", p.Threshold)
}

func (p *ConfirmWithdrawal) Validate() error {
	if p.OperationID == 0 {
		return errors.Wrap(ErrUnknownOperation, "operation id 0")
	}
	return nil
}

func (p *UpgradeTo) Validate() error {
	if p.Implementation.IsZero() {
		return errors.Wrap(ErrInvalidTarget, "implementation")
	}
	return nil
}

func (p *EvacuateIfDepegged) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"evacuationMinReturn":   p.EvacuationMinReturn,
		"flashLoanAmount":       p.FlashLoanAmount,
		"manipulationMinReturn": p.ManipulationMinReturn,
		"simpleSwapMinReturn":   p.SimpleSwapMinReturn,
	} {
		if err := validateUint(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks only the lower bound; the owner-count bound belongs to the authorizer.
func (p *ChangeRequirement) Validate() error {
	if p.Required < 1 {
		return errors.Wrapf(ErrInvalidThreshold, "required %d", p.Required)
	}
	return nil
}

func validateUint(name string, v decimal.Decimal) error {
	if v.IsNegative() || !v.Equal(v.Truncate(0)) {
		return errors.Wrapf(ErrInvalidValue, "%v: %v", name, v)
	}
	return nil
}

func (p *ConvertEthToProtectedAsset) writeParams(e *jx.Encoder) {
	e.ObjStart()
	writeDecimal(e, "minAmountOut", p.MinAmountOut)
	e.ObjEnd()
}

func (p *SetSafeAsset) writeParams(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("asset")
	e.Str(p.Asset.String())
	e.FieldStart("oracle")
	e.Str(p.Oracle.String())
	e.ObjEnd()
}

func (p *SetDepegThreshold) writeParams(e *jx.Encoder) {
	e.ObjStart()
	writeDecimal(e, "threshold", p.Threshold)
	e.ObjEnd()
}

func (p *ConfirmWithdrawal) writeParams(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("operationId")
	e.UInt64(p.OperationID)
	e.ObjEnd()
}

func (p *UpgradeTo) writeParams(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("implementation")
	e.Str(p.Implementation.String())
	e.ObjEnd()
}

func (p *EvacuateIfDepegged) writeParams(e *jx.Encoder) {
	e.ObjStart()
	writeDecimal(e, "evacuationMinReturn", p.EvacuationMinReturn)
	writeDecimal(e, "flashLoanAmount", p.FlashLoanAmount)
	writeDecimal(e, "manipulationMinReturn", p.ManipulationMinReturn)
	writeDecimal(e, "simpleSwapMinReturn", p.SimpleSwapMinReturn)
	e.ObjEnd()
}

func (p *ChangeRequirement) writeParams(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("required")
	e.Int(p.Required)
	e.ObjEnd()
}

func (p *ConvertEthToProtectedAsset) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "minAmountOut":
			p.MinAmountOut, err = readDecimal(d)
			return err
		}
		return d.Skip()
	})
}

func (p *SetSafeAsset) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "asset":
			p.Asset, err = readAddress(d)
			return err
		case "oracle":
			p.Oracle, err = readAddress(d)
			return err
		}
		return d.Skip()
	})
}

func (p *SetDepegThreshold) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "threshold":
			p.Threshold, err = readDecimal(d)
			return err
		}
		return d.Skip()
	})
}

func (p *ConfirmWithdrawal) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "operationId":
			v, err := readDecimal(d)
			if err != nil {
				return err
			}
			if v.IsNegative() || !v.Equal(v.Truncate(0)) || !v.BigInt().IsUint64() {
				return errors.Errorf("operationId %v", v)
			}
			p.OperationID = v.BigInt().Uint64()
			return nil
		}
		return d.Skip()
	})
}

func (p *UpgradeTo) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "implementation":
			p.Implementation, err = readAddress(d)
			return err
		}
		return d.Skip()
	})
}

func (p *EvacuateIfDepegged) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "evacuationMinReturn":
			p.EvacuationMinReturn, err = readDecimal(d)
		case "flashLoanAmount":
			p.FlashLoanAmount, err = readDecimal(d)
		case "manipulationMinReturn":
			p.ManipulationMinReturn, err = readDecimal(d)
		case "simpleSwapMinReturn":
			p.SimpleSwapMinReturn, err = readDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (p *ChangeRequirement) readParams(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "required":
			p.Required, err = d.Int()
			return err
		}
		return d.Skip()
	})
}

// amounts may exceed 64 bits, so they travel as decimal strings
func writeDecimal(e *jx.Encoder, field string, v decimal.Decimal) {
	e.FieldStart(field)
	e.Str(v.String())
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %v, want number", d.Next())
	}
}

func readAddress(d *jx.Decoder) (Address, error) {
	s, err := d.Str()
	if err != nil {
		return "", err
	}
	return ParseAddress(s)
}
