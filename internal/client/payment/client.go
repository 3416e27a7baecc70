package payment

// PortOne(아임포트)支付网关客户端：
// - 先用key/secret换取access token，再按交易ID查询权威交易记录
// - 所有请求走带超时的http.Client，调用方还可以通过ctx进一步收紧

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/config"
)

var ErrTransactionNotFound = errors.New("支付交易不存在")

// Transaction 网关侧的权威交易记录
type Transaction struct {
	ImpUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Status      string `json:"status"` // paid / ready / failed / cancelled
	Amount      int64  `json:"amount"`
}

// StatusPaid 网关侧"已支付"状态值
const StatusPaid = "paid"

// Gateway 供订单流程使用的查询接口，便于测试时替换
type Gateway interface {
	GetTransaction(ctx context.Context, impUID string) (*Transaction, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func NewClient(cfg *config.PaymentConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type tokenResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response struct {
		AccessToken string `json:"access_token"`
		ExpiredAt   int64  `json:"expired_at"`
	} `json:"response"`
}

type transactionResponse struct {
	Code     int          `json:"code"`
	Message  string       `json:"message"`
	Response *Transaction `json:"response"`
}

// getToken 换取access token
// token有效期很短且下单是低频操作，这里不做缓存，每次查询前重新获取
func (c *Client) getToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"imp_key":    c.apiKey,
		"imp_secret": c.apiSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/getToken", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	if tr.Code != 0 || tr.Response.AccessToken == "" {
		return "", fmt.Errorf("获取网关token失败: code=%d msg=%s", tr.Code, tr.Message)
	}
	return tr.Response.AccessToken, nil
}

// GetTransaction 按交易ID查询交易记录
// 404映射为ErrTransactionNotFound，由上层决定是否宽容处理
func (c *Client) GetTransaction(ctx context.Context, impUID string) (*Transaction, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/payments/%s", c.baseURL, impUID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("支付网关返回异常状态: %d", resp.StatusCode)
	}

	var tr transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.Code != 0 || tr.Response == nil {
		return nil, fmt.Errorf("查询交易失败: code=%d msg=%s", tr.Code, tr.Message)
	}
	return tr.Response, nil
}
