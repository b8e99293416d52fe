// Package gateway holds the HTTP clients for the two external collaborators
// the flow depends on: the payment gateway and the identity provider. Failures
// are classified into domain errors here so no raw transport error crosses
// into the flow.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionRequest struct {
	IntentID uuid.UUID            `json:"partner_order_id"`
	UserID   uuid.UUID            `json:"partner_user_id"`
	Method   domain.PaymentMethod `json:"payment_method"`
	Amount   int64                `json:"amount"`
}

type sessionResponse struct {
	PaymentID          string `json:"payment_id"`
	TransactionToken   string `json:"tid"`
	RedirectURLDesktop string `json:"next_redirect_pc_url"`
	RedirectURLMobile  string `json:"next_redirect_mobile_url"`
}

// CreateSession opens a payment session with the gateway. The returned session
// is pending; for gateway payments it carries the redirect URLs the caller
// picks from by device class.
func (c *Client) CreateSession(ctx context.Context, intentID, userID uuid.UUID, method domain.PaymentMethod, amount int64) (domain.PaymentSession, error) {
	req := sessionRequest{IntentID: intentID, UserID: userID, Method: method, Amount: amount}
	body, err := json.Marshal(req)
	if err != nil {
		return domain.PaymentSession{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment/ready", bytes.NewReader(body))
	if err != nil {
		return domain.PaymentSession{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.PaymentSession{}, errors.Mark(err, domain.ErrSessionCreation)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.PaymentSession{}, errors.Mark(
			errors.Newf("gateway rejected session: status %d", resp.StatusCode),
			domain.ErrSessionCreation)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.PaymentSession{}, errors.Mark(err, domain.ErrSessionCreation)
	}

	return domain.PaymentSession{
		ID:                 sr.PaymentID,
		TransactionToken:   sr.TransactionToken,
		Method:             method,
		Amount:             amount,
		Status:             domain.SessionPending,
		RedirectURLDesktop: sr.RedirectURLDesktop,
		RedirectURLMobile:  sr.RedirectURLMobile,
	}, nil
}
