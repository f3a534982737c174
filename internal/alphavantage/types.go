package alphavantage

// RawBar is one day of OHLCV data as the provider encodes it: every numeric
// field arrives as a decimal string under a numbered key.
type RawBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// RawQuote is the provider's current-quote payload. ChangePercent carries a
// trailing "%" that the normalizer strips.
type RawQuote struct {
	Price         string `json:"05. price"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
	Volume        string `json:"06. volume"`
}

// Empty reports whether the provider returned a hollow quote object, its
// way of signaling an unknown symbol inside a 200 response.
func (q RawQuote) Empty() bool {
	return q.Price == ""
}

// dailyResponse is the wire shape of a TIME_SERIES_DAILY response. The
// provider signals failures in-band: "Error Message" for bad requests,
// "Note"/"Information" for quota exhaustion, all with HTTP 200.
type dailyResponse struct {
	Series       map[string]RawBar `json:"Time Series (Daily)"`
	ErrorMessage string            `json:"Error Message"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
}

// quoteResponse is the wire shape of a GLOBAL_QUOTE response.
type quoteResponse struct {
	Quote        RawQuote `json:"Global Quote"`
	ErrorMessage string   `json:"Error Message"`
	Note         string   `json:"Note"`
	Information  string   `json:"Information"`
}

// APIError is a provider-reported error message (in-band, HTTP 200).
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "provider error: " + e.Message
}

// QuotaNote is the provider's in-band quota-exhaustion notice.
type QuotaNote struct {
	Message string
}

func (e *QuotaNote) Error() string {
	return "provider quota note: " + e.Message
}
