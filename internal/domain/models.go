// Package domain provides core domain models and types shared across modules.
package domain

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// AssetClass categorizes a holding for valuation breakdowns.
type AssetClass string

const (
	AssetClassEquity    AssetClass = "equity"
	AssetClassFund      AssetClass = "fund"
	AssetClassBond      AssetClass = "bond"
	AssetClassCrypto    AssetClass = "crypto"
	AssetClassCommodity AssetClass = "commodity"
)

// AssetClasses lists every valued asset class in breakdown order.
// Cash is tracked separately in the snapshot, not as an asset class.
var AssetClasses = []AssetClass{
	AssetClassEquity,
	AssetClassFund,
	AssetClassBond,
	AssetClassCrypto,
	AssetClassCommodity,
}

// Valid reports whether the asset class is one of the known classes.
func (a AssetClass) Valid() bool {
	switch a {
	case AssetClassEquity, AssetClassFund, AssetClassBond, AssetClassCrypto, AssetClassCommodity:
		return true
	}
	return false
}
