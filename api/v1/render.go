package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/yunn234/yunn-shoppingmall/pkg/e"
	"github.com/yunn234/yunn-shoppingmall/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Pagination 列表响应的分页信息
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Response 统一响应信封
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      int         `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: msg, Data: data})
}

// Paginated 带分页的成功响应
func Paginated(c *gin.Context, msg string, data interface{}, page, limit int, total int64) {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
		Pagination: &Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

// Fail 业务错误响应，HTTP状态码由错误码映射得出
// 非业务错误不向客户端透出细节，记日志后统一按内部错误返回
func Fail(c *gin.Context, err error) {
	var bizErr *e.BizError
	if !errors.As(err, &bizErr) {
		logger.ErrorContext(c.Request.Context(), "请求处理失败",
			"path", c.FullPath(), "error", err)
		FailCode(c, e.ERROR)
		return
	}
	c.JSON(e.HTTPStatus(bizErr.Code), Response{
		Success: false,
		Message: bizErr.Message,
		Error:   bizErr.Code,
	})
}

// FailCode 按错误码返回默认文案
func FailCode(c *gin.Context, code int) {
	c.JSON(e.HTTPStatus(code), Response{
		Success: false,
		Message: e.GetMsg(code),
		Error:   code,
	})
}

func toInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func toInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// pageParams 解析分页查询参数，越界取默认值
func pageParams(c *gin.Context) (page, limit int) {
	page = toInt(c.DefaultQuery("page", "1"), 1)
	limit = toInt(c.DefaultQuery("limit", "10"), 10)
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
