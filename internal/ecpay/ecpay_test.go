package ecpay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	MerchantID:    "2000132",
	HashKey:       "5294y06JbISpM5x9",
	HashIV:        "v77hoKGq4kWxNNIS",
	APIURL:        "https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5",
	ClientBackURL: "https://shop.example.com/success.html",
	Domain:        "https://shop.example.com",
}

func testParams() map[string]string {
	return map[string]string{
		"MerchantID":        "2000132",
		"MerchantTradeNo":   "Tkt1700000000000",
		"MerchantTradeDate": "2023/11/14 22:13:20",
		"PaymentType":       "aio",
		"TotalAmount":       "1300",
		"TradeDesc":         "ticket order",
		"ReturnURL":         "https://shop.example.com/api/checkout/ecpay-return",
		"ClientBackURL":     "https://shop.example.com/success.html",
		"ItemName":          "OpenTicket Order",
		"ChoosePayment":     "Credit",
		"EncryptType":       "1",
	}
}

func TestCheckMacValue_KnownAnswer(t *testing.T) {
	c := NewClient(testConfig)
	mac := c.CheckMacValue(testParams())
	assert.Equal(t, "D68524EB5153CFA66E5FDB5C9478C5C4F4756639899E32117994A246024B51D8", mac)
}

func TestCheckMacValue_Deterministic(t *testing.T) {
	c := NewClient(testConfig)
	assert.Equal(t, c.CheckMacValue(testParams()), c.CheckMacValue(testParams()))
}

func TestCheckMacValue_ChangesWithAnyField(t *testing.T) {
	c := NewClient(testConfig)
	base := c.CheckMacValue(testParams())

	for key := range testParams() {
		params := testParams()
		params[key] = params[key] + "x"
		assert.NotEqual(t, base, c.CheckMacValue(params), "mutating %s must change the digest", key)
	}
}

func TestCheckMacValue_IgnoresExistingDigestField(t *testing.T) {
	c := NewClient(testConfig)
	params := testParams()
	base := c.CheckMacValue(params)
	params["CheckMacValue"] = base
	assert.Equal(t, base, c.CheckMacValue(params))
}

func TestBuildRedirect(t *testing.T) {
	c := NewClient(testConfig)
	c.now = func() time.Time {
		return time.Unix(1700000000, 0).UTC()
	}

	form := c.BuildRedirect(1300, "OpenTicket Order", "ticket order", "Credit")

	require.True(t, strings.HasPrefix(form, "<form id='ecpay-form'"))
	assert.Contains(t, form, "action='"+testConfig.APIURL+"'")
	assert.Contains(t, form, "name='MerchantTradeNo' value='Tkt1700000000000'")
	assert.Contains(t, form, "name='MerchantTradeDate' value='2023/11/14 22:13:20")
	assert.Contains(t, form, "name='TotalAmount' value='1300'")
	assert.Contains(t, form, "name='ChoosePayment' value='Credit'")
	assert.Contains(t, form, "name='EncryptType' value='1'")
	assert.Contains(t, form, "name='ReturnURL' value='https://shop.example.com/api/checkout/ecpay-return'")
	assert.Contains(t, form, "name='CheckMacValue' value='D68524EB5153CFA66E5FDB5C9478C5C4F4756639899E32117994A246024B51D8'")
	assert.Contains(t, form, "document.getElementById('ecpay-form').submit()")
}

func TestBuildRedirect_OmitsEmptyChoosePayment(t *testing.T) {
	c := NewClient(testConfig)
	form := c.BuildRedirect(500, "OpenTicket Order", "ticket order", "")
	assert.NotContains(t, form, "ChoosePayment")
}
