package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestFetchDailySeries_ParsesBars(t *testing.T) {
	var gotQuery map[string]string
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"function":   r.URL.Query().Get("function"),
			"symbol":     r.URL.Query().Get("symbol"),
			"outputsize": r.URL.Query().Get("outputsize"),
			"apikey":     r.URL.Query().Get("apikey"),
		}
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2025-06-02": {
					"1. open": "149.50",
					"2. high": "151.00",
					"3. low": "148.75",
					"4. close": "150.00",
					"5. volume": "52000000"
				}
			}
		}`))
	})

	series, err := c.FetchDailySeries(context.Background(), "AAPL", "TESTKEY1")
	if err != nil {
		t.Fatalf("FetchDailySeries: %v", err)
	}
	if gotQuery["function"] != "TIME_SERIES_DAILY" || gotQuery["symbol"] != "AAPL" ||
		gotQuery["outputsize"] != "compact" || gotQuery["apikey"] != "TESTKEY1" {
		t.Errorf("query params: %v", gotQuery)
	}
	bar, ok := series["2025-06-02"]
	if !ok {
		t.Fatalf("missing bar: %v", series)
	}
	if bar.Close != "150.00" || bar.Volume != "52000000" {
		t.Errorf("bar: %+v", bar)
	}
}

func TestFetchQuote_ParsesGlobalQuote(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("function: got %q", got)
		}
		w.Write([]byte(`{
			"Global Quote": {
				"05. price": "150.00",
				"09. change": "0.50",
				"10. change percent": "0.3344%",
				"06. volume": "52000000"
			}
		}`))
	})

	quote, err := c.FetchQuote(context.Background(), "AAPL", "TESTKEY1")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if quote.Price != "150.00" || quote.ChangePercent != "0.3344%" {
		t.Errorf("quote: %+v", quote)
	}
	if quote.Empty() {
		t.Error("populated quote reported Empty")
	}
}

func TestInBandErrorMessage(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := c.FetchDailySeries(context.Background(), "AAPL", "TESTKEY1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %T (%v), want APIError", err, err)
	}
	if apiErr.Message != "Invalid API call." {
		t.Errorf("message: %q", apiErr.Message)
	}
}

func TestInBandQuotaNote(t *testing.T) {
	for _, field := range []string{"Note", "Information"} {
		c := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"` + field + `": "API call frequency exceeded"}`))
		})
		_, err := c.FetchQuote(context.Background(), "AAPL", "TESTKEY1")
		var note *QuotaNote
		if !errors.As(err, &note) {
			t.Errorf("%s: got %T (%v), want QuotaNote", field, err, err)
		}
	}
}

func TestNon200Status(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.FetchDailySeries(context.Background(), "AAPL", "TESTKEY1"); err == nil {
		t.Fatal("want error for 503 response")
	}
}
