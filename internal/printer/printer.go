package printer

// Package printer forwards issued bills to the external receipt printer
// service. The printer sits on the counter LAN and is best-effort: a failed
// POST never undoes a bill.

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "github.com/gatepos/canteen/internal/canteen"
)

// receipt is the wire shape the print service expects.
type receipt struct {
    BillNo   int64  `json:"bill_no"`
    Date     string `json:"date"`
    Customer string `json:"customer"`
    Meal     string `json:"meal"`
    Amount   string `json:"amount"`
    Mode     string `json:"mode"`
}

// Client posts receipts to the print service.
type Client struct {
    url    string
    client *http.Client
    logger *slog.Logger
}

// New builds a printer client for the given endpoint. The timeout is short:
// the counter flow cannot wait on a jammed printer.
func New(url string, logger *slog.Logger) *Client {
    return &Client{
        url:    url,
        client: &http.Client{Timeout: 3 * time.Second},
        logger: logger,
    }
}

// BillIssued sends the receipt for one bill. Errors are returned so the
// billing layer can attach a warning, and logged here for the operator.
func (c *Client) BillIssued(ctx context.Context, b canteen.Bill, customer string) error {
    rec := receipt{
        BillNo:   b.No,
        Date:     b.At.Format(time.RFC3339),
        Customer: customer,
        Meal:     string(b.Meal),
        Amount:   canteen.FormatAmount(b.AmountMinor),
        Mode:     string(b.Mode),
    }
    body, err := json.Marshal(rec)
    if err != nil {
        return err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.client.Do(req)
    if err != nil {
        c.logger.Warn("print service unreachable", "bill_no", b.No, "error", err)
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        err := fmt.Errorf("print service returned %d", resp.StatusCode)
        c.logger.Warn("print service rejected receipt", "bill_no", b.No, "status", resp.StatusCode)
        return err
    }
    return nil
}
