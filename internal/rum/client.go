package rum

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// Client is the group-chain collaborator: submit signed content and read
// transactions back. The signing identity is passed per call, never held
// as client state.
type Client interface {
	GroupID() string
	PostContent(ctx context.Context, account *Account, data *Activity) (string, error)
	GetContent(ctx context.Context, opts ContentOptions) ([]Trx, error)
	GetTrx(ctx context.Context, trxID string) (*Trx, error)
}

// ContentOptions selects a page of group content.
type ContentOptions struct {
	StartTrx string
	Num      int
	Reverse  bool
	Senders  []string
}

// HTTPClient talks to a RUM lightnode REST API.
type HTTPClient struct {
	seed   *Seed
	client *http.Client
}

func NewHTTPClient(seed *Seed) *HTTPClient {
	return &HTTPClient{
		seed: seed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) GroupID() string {
	return c.seed.GroupID
}

type postContentRequest struct {
	Data         Activity `json:"Data"`
	SenderPubkey string   `json:"SenderPubkey"`
	SenderSign   string   `json:"SenderSign"`
	TimeStamp    int64    `json:"TimeStamp"`
}

type postContentResponse struct {
	TrxID string `json:"trx_id"`
}

// PostContent signs and submits a content activity, returning the trx id.
func (c *HTTPClient) PostContent(ctx context.Context, account *Account, data *Activity) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode content: %w", err)
	}
	sign, err := account.Sign(crypto.Keccak256(raw))
	if err != nil {
		return "", fmt.Errorf("failed to sign content: %w", err)
	}

	reqBody := postContentRequest{
		Data:         *data,
		SenderPubkey: account.Pubkey(),
		SenderSign:   base64.StdEncoding.EncodeToString(sign),
		TimeStamp:    time.Now().UnixNano(),
	}

	var resp postContentResponse
	endpoint := fmt.Sprintf("/api/v1/node/trx/%s", c.seed.GroupID)
	if err := c.do(ctx, http.MethodPost, endpoint, &reqBody, &resp); err != nil {
		return "", err
	}
	if resp.TrxID == "" {
		return "", fmt.Errorf("chain accepted content but returned no trx id")
	}
	return resp.TrxID, nil
}

// GetContent fetches a page of group transactions after opts.StartTrx.
func (c *HTTPClient) GetContent(ctx context.Context, opts ContentOptions) ([]Trx, error) {
	query := url.Values{}
	if opts.StartTrx != "" {
		query.Set("start_trx", opts.StartTrx)
	}
	if opts.Num > 0 {
		query.Set("num", strconv.Itoa(opts.Num))
	}
	if opts.Reverse {
		query.Set("reverse", "true")
	}
	if len(opts.Senders) > 0 {
		query.Set("senders", strings.Join(opts.Senders, ","))
	}

	endpoint := fmt.Sprintf("/api/v1/node/groupctn/%s", c.seed.GroupID)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var trxs []Trx
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &trxs); err != nil {
		return nil, err
	}
	return trxs, nil
}

// GetTrx fetches a single transaction by id.
func (c *HTTPClient) GetTrx(ctx context.Context, trxID string) (*Trx, error) {
	endpoint := fmt.Sprintf("/api/v1/node/trx/%s/%s", c.seed.GroupID, trxID)
	var trx Trx
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &trx); err != nil {
		return nil, err
	}
	return &trx, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var lastErr error
	for _, api := range c.seed.APIs {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, api+endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.seed.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.seed.Token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("chain api %s returned status %d: %s", api, resp.StatusCode, strings.TrimSpace(string(respBody)))
			continue
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				lastErr = fmt.Errorf("failed to decode chain response: %w", err)
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all chain api endpoints failed: %w", lastErr)
}
