package core

import "github.com/shopspring/decimal"

// FundState is a point-in-time read of the fund contract on the Ledger.
// The oracle price is consumed as is.
type FundState struct {
	Address           Address
	ProtectedAsset    Address
	ProtectedDecimals int32
	ProtectedSymbol   string
	ProtectedBalance  decimal.Decimal
	SafeAsset         Address
	SafeAssetOracle   Address
	SafeBalance       decimal.Decimal
	OraclePrice       decimal.Decimal
	OracleDecimals    int32
	DepegThreshold    decimal.Decimal
	Implementation    Address
	NativeBalance     decimal.Decimal
}
