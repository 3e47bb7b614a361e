/*
monitor_client.go - Outbound cheque-monitoring client

PURPOSE:
  Posts clearance-monitoring requests to the external payment-monitoring
  service. Plugged in as the target of ledger.MonitorQueue, which owns
  retry; this client does a single attempt per call.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/settlement-engine/settlement"
)

// ChequeMonitorClient implements ledger.ChequeMonitor over HTTP.
type ChequeMonitorClient struct {
	URL    string
	Client *http.Client
}

// NewChequeMonitorClient creates a client posting to url.
func NewChequeMonitorClient(url string) *ChequeMonitorClient {
	return &ChequeMonitorClient{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type monitorRequestBody struct {
	CaseID     int64  `json:"case_id"`
	AccountNum string `json:"account_num"`
	EndDate    string `json:"end_date"`
}

// RequestMonitoring posts one monitoring request.
func (c *ChequeMonitorClient) RequestMonitoring(ctx context.Context, caseID settlement.CaseID, accountNum string, deadline time.Time) error {
	body, err := json.Marshal(monitorRequestBody{
		CaseID:     int64(caseID),
		AccountNum: accountNum,
		EndDate:    deadline.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting monitoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("monitoring service returned %d", resp.StatusCode)
	}
	return nil
}
