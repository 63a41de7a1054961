package api

// ErrorResponse is the body returned with non-success statuses.
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// AccountResponse from GET /api/v3/account
type AccountResponse struct {
	MakerCommission int          `json:"makerCommission"`
	TakerCommission int          `json:"takerCommission"`
	CanTrade        bool         `json:"canTrade"`
	CanWithdraw     bool         `json:"canWithdraw"`
	CanDeposit      bool         `json:"canDeposit"`
	UpdateTime      int64        `json:"updateTime"` // ms since epoch
	AccountType     string       `json:"accountType"`
	Balances        []APIBalance `json:"balances"`
}

// APIBalance is one asset balance. Quantities are decimal strings.
type APIBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// TickerPriceResponse from GET /api/v3/ticker/price?symbol=
type TickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}
