package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bahari-bites/internal/config"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
)

var (
	// ErrGatewayAuth covers a failed token exchange: unreachable endpoint,
	// unparseable body, or a response without an access_token field. Not
	// retried here; callers retry the whole operation.
	ErrGatewayAuth = errors.New("gateway authentication failed")
	// ErrGatewayRequest covers network errors, non-2xx statuses and decode
	// failures on the payment endpoints.
	ErrGatewayRequest = errors.New("gateway request failed")
)

const (
	timestampLayout = "20060102150405"

	oauthPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	reversalPath = "/mpesa/reversal/v1/request"

	transactionType   = "CustomerPayBillOnline"
	reversalCommandID = "TransactionReversal"
	// Identifier type 11 = organization shortcode, per the provider docs.
	receiverIdentifierType = 11
)

// Client talks to the M-Pesa HTTP API. It is stateless: every call fetches a
// fresh access token and performs one synchronous request bounded by the
// configured HTTP timeout. No retries.
type Client struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	log        *logger.Logger

	// now is swapped out by tests that need a fixed timestamp.
	now func() time.Time
}

func NewClient(cfg config.MpesaConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		now:        time.Now,
	}
}

// AccessToken exchanges the consumer key/secret for a bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+oauthPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("MPESA", "Token exchange failed: "+err.Error())
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Error("MPESA", "Token response not parseable: "+err.Error())
		return "", fmt.Errorf("%w: invalid token response: %v", ErrGatewayAuth, err)
	}
	if body.AccessToken == "" {
		c.log.Error("MPESA", "Token response missing access_token field")
		return "", fmt.Errorf("%w: access_token missing", ErrGatewayAuth)
	}
	return body.AccessToken, nil
}

// STKPush asks the provider to prompt the payer's phone for amountCents.
// The gateway only accepts whole currency units, so fractional amounts are
// truncated, not rounded; this is the provider's documented behavior.
func (c *Client) STKPush(ctx context.Context, phone string, amountCents int64, reference string) (*models.STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	payload := &models.STKPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amountCents / 100,
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   fmt.Sprintf("Payment for %s", reference),
	}

	c.log.LogPayment("STK_PUSH", reference, fmt.Sprintf("Dispatching push prompt to %s for %d units", phone, payload.Amount))

	var response models.STKPushResponse
	if err := c.postJSON(ctx, c.cfg.BaseURL+stkPushPath, token, payload, &response); err != nil {
		return nil, err
	}

	c.log.LogPayment("STK_PUSH", reference, fmt.Sprintf("Gateway acknowledged with code %s (%s)",
		response.ResponseCode, response.ResponseDescription))
	return &response, nil
}

// Reverse submits a corrective reversal for a completed transaction. Operator
// remediation only; the order/reservation flow never calls it.
func (c *Client) Reverse(ctx context.Context, transactionID string, amountCents int64) (*models.ReversalResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := &models.ReversalRequest{
		Initiator:              c.cfg.InitiatorName,
		SecurityCredential:     c.cfg.SecurityCredential,
		CommandID:              reversalCommandID,
		TransactionID:          transactionID,
		Amount:                 amountCents / 100,
		ReceiverParty:          c.cfg.Shortcode,
		RecieverIdentifierType: receiverIdentifierType,
		Remarks:                "Incorrect transaction amount reversal",
		QueueTimeOutURL:        c.cfg.CallbackURL,
		ResultURL:              c.cfg.CallbackURL,
	}

	c.log.LogPayment("REVERSAL", transactionID, fmt.Sprintf("Requesting reversal of %d units", payload.Amount))

	var response models.ReversalResponse
	if err := c.postJSON(ctx, c.cfg.BaseURL+reversalPath, token, payload, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// password derives the push-payment credential: base64(shortcode+passkey+timestamp).
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}

func (c *Client) postJSON(ctx context.Context, url, token string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("MPESA", "Gateway request failed: "+err.Error())
		return fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("MPESA", fmt.Sprintf("Gateway returned status %d", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrGatewayRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Error("MPESA", "Gateway response not parseable: "+err.Error())
		return fmt.Errorf("%w: invalid response: %v", ErrGatewayRequest, err)
	}
	return nil
}
