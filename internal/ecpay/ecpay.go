// Package ecpay builds the signed self-submitting redirect form used to
// hand the browser off to the payment gateway.
package ecpay

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MerchantID    string
	HashKey       string
	HashIV        string
	APIURL        string
	ClientBackURL string
	Domain        string
}

type Client struct {
	cfg Config
	now func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, now: time.Now}
}

// BuildRedirect assembles the gateway field set for an all-in-one checkout,
// signs it, and renders it as a self-submitting form. choosePayment may be
// empty, in which case the gateway presents its own method selection.
func (c *Client) BuildRedirect(totalAmount int64, itemName, tradeDesc, choosePayment string) string {
	now := c.now()
	tradeNo := "Tkt" + strconv.FormatInt(now.UnixMilli(), 10)

	params := map[string]string{
		"MerchantID":        c.cfg.MerchantID,
		"MerchantTradeNo":   tradeNo,
		"MerchantTradeDate": now.Format("2006/01/02 15:04:05"),
		"PaymentType":       "aio",
		"TotalAmount":       strconv.FormatInt(totalAmount, 10),
		"TradeDesc":         tradeDesc,
		"ReturnURL":         c.cfg.Domain + "/api/checkout/ecpay-return",
		"ClientBackURL":     c.cfg.ClientBackURL,
		"ItemName":          itemName,
		"EncryptType":       "1",
	}
	if choosePayment != "" {
		params["ChoosePayment"] = choosePayment
	}
	params["CheckMacValue"] = c.CheckMacValue(params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<form id='ecpay-form' action='")
	b.WriteString(html.EscapeString(c.cfg.APIURL))
	b.WriteString("' method='POST'>")
	for _, k := range keys {
		b.WriteString("<input type='hidden' name='")
		b.WriteString(k)
		b.WriteString("' value='")
		b.WriteString(html.EscapeString(params[k]))
		b.WriteString("'>")
	}
	b.WriteString("</form>")
	b.WriteString("<script>document.getElementById('ecpay-form').submit();</script>")
	return b.String()
}

// The gateway expects .NET-flavored form encoding, hence the literal
// substitutions after lower-casing the percent-encoded string.
var macReplacer = strings.NewReplacer(
	"%2d", "-",
	"%5f", "_",
	"%2e", ".",
	"%21", "!",
	"%2a", "*",
	"%28", "(",
	"%29", ")",
	"%20", "+",
)

// CheckMacValue signs a gateway field set: key-sorted k=v pairs joined with
// '&', wrapped with the HashKey/HashIV secret pair, percent-encoded,
// lower-cased, substituted, then SHA-256 hex upper-cased.
func (c *Client) CheckMacValue(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "CheckMacValue" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	raw := "HashKey=" + c.cfg.HashKey + "&" + strings.Join(pairs, "&") + "&HashIV=" + c.cfg.HashIV
	encoded := macReplacer.Replace(strings.ToLower(url.QueryEscape(raw)))

	sum := sha256.Sum256([]byte(encoded))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
