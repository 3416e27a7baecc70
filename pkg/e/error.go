package e

import "net/http"

// 错误码定义
const (
	SUCCESS        = 0
	ERROR          = 1
	INVALID_PARAMS = 2

	ERROR_AUTH_CHECK_TOKEN_FAIL    = 10001
	ERROR_AUTH_CHECK_TOKEN_TIMEOUT = 10002
	ERROR_AUTH_TOKEN               = 10003
	ERROR_AUTH                     = 10004
	ERROR_FORBIDDEN                = 10005

	ERROR_USER_EXISTS     = 20001
	ERROR_USER_NOT_EXISTS = 20002
	ERROR_PASSWORD        = 20003

	ERROR_PRODUCT_NOT_EXISTS  = 30001
	ERROR_PRODUCT_CODE_EXISTS = 30002
	ERROR_PRODUCT_NOT_ON_SALE = 30003
	ERROR_INVALID_CATEGORY    = 30004

	ERROR_CART_NOT_EXISTS      = 40001
	ERROR_CART_ITEM_NOT_EXISTS = 40002
	ERROR_CART_EMPTY           = 40003
	ERROR_CART_CONFLICT        = 40004

	ERROR_ORDER_NOT_EXISTS      = 50001
	ERROR_ORDER_AMOUNT_MISMATCH = 50002
	ERROR_PAYMENT_MISMATCH      = 50003
	ERROR_PAYMENT_GATEWAY       = 50004
	ERROR_ORDER_NUMBER_CONFLICT = 50005
	ERROR_ORDER_INVALID_STATE   = 50006
	ERROR_ORDER_IN_PROGRESS     = 50007
)

var MsgFlags = map[int]string{
	SUCCESS:        "成功",
	ERROR:          "失败",
	INVALID_PARAMS: "请求参数错误",

	ERROR_AUTH_CHECK_TOKEN_FAIL:    "Token验证失败",
	ERROR_AUTH_CHECK_TOKEN_TIMEOUT: "Token已超时",
	ERROR_AUTH_TOKEN:               "Token生成失败",
	ERROR_AUTH:                     "认证失败",
	ERROR_FORBIDDEN:                "没有操作权限",

	ERROR_USER_EXISTS:     "邮箱已被注册",
	ERROR_USER_NOT_EXISTS: "用户不存在",
	ERROR_PASSWORD:        "密码错误",

	ERROR_PRODUCT_NOT_EXISTS:  "商品不存在",
	ERROR_PRODUCT_CODE_EXISTS: "商品编码已存在",
	ERROR_PRODUCT_NOT_ON_SALE: "商品已停止销售",
	ERROR_INVALID_CATEGORY:    "商品分类不合法",

	ERROR_CART_NOT_EXISTS:      "购物车不存在",
	ERROR_CART_ITEM_NOT_EXISTS: "购物车商品不存在",
	ERROR_CART_EMPTY:           "购物车为空",
	ERROR_CART_CONFLICT:        "购物车已被修改，请重试",

	ERROR_ORDER_NOT_EXISTS:      "订单不存在",
	ERROR_ORDER_AMOUNT_MISMATCH: "结算金额不一致",
	ERROR_PAYMENT_MISMATCH:      "支付校验不通过",
	ERROR_PAYMENT_GATEWAY:       "支付网关调用失败",
	ERROR_ORDER_NUMBER_CONFLICT: "订单号生成冲突",
	ERROR_ORDER_INVALID_STATE:   "当前订单状态不允许该操作",
	ERROR_ORDER_IN_PROGRESS:     "存在正在处理的下单请求，请稍后再试",
}

func GetMsg(code int) string {
	msg, ok := MsgFlags[code]
	if ok {
		return msg
	}
	return MsgFlags[ERROR]
}

// BizError 业务错误，由service层返回，handler层据此渲染统一响应
type BizError struct {
	Code    int
	Message string
}

func (b *BizError) Error() string {
	return b.Message
}

// New 用默认文案创建业务错误
func New(code int) *BizError {
	return &BizError{Code: code, Message: GetMsg(code)}
}

// NewMsg 用自定义文案创建业务错误
func NewMsg(code int, msg string) *BizError {
	return &BizError{Code: code, Message: msg}
}

// CodeOf 从error中提取业务错误码，非业务错误一律视为ERROR
func CodeOf(err error) int {
	if err == nil {
		return SUCCESS
	}
	if b, ok := err.(*BizError); ok {
		return b.Code
	}
	return ERROR
}

// HTTPStatus 业务错误码到HTTP状态码的映射
func HTTPStatus(code int) int {
	switch code {
	case SUCCESS:
		return http.StatusOK
	case INVALID_PARAMS, ERROR_CART_EMPTY, ERROR_PRODUCT_NOT_ON_SALE,
		ERROR_ORDER_AMOUNT_MISMATCH, ERROR_PAYMENT_MISMATCH, ERROR_PAYMENT_GATEWAY,
		ERROR_ORDER_INVALID_STATE, ERROR_INVALID_CATEGORY, ERROR_PASSWORD:
		return http.StatusBadRequest
	case ERROR_AUTH, ERROR_AUTH_CHECK_TOKEN_FAIL, ERROR_AUTH_CHECK_TOKEN_TIMEOUT, ERROR_AUTH_TOKEN:
		return http.StatusUnauthorized
	case ERROR_FORBIDDEN:
		return http.StatusForbidden
	case ERROR_USER_NOT_EXISTS, ERROR_PRODUCT_NOT_EXISTS, ERROR_CART_NOT_EXISTS,
		ERROR_CART_ITEM_NOT_EXISTS, ERROR_ORDER_NOT_EXISTS:
		return http.StatusNotFound
	case ERROR_USER_EXISTS, ERROR_PRODUCT_CODE_EXISTS, ERROR_ORDER_NUMBER_CONFLICT,
		ERROR_CART_CONFLICT, ERROR_ORDER_IN_PROGRESS:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
