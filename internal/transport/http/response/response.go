package response

import (
	"github.com/gin-gonic/gin"
)

// Body 构造 {message, ...fields}；message 为空时省略
func Body(msg string, fields gin.H) gin.H {
	out := make(gin.H, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if msg != "" {
		out["message"] = msg
	}
	return out
}

// Error 失败响应；msg 为空取状态码默认文案
func Error(status int, msg string, fields gin.H) gin.H {
	if msg == "" {
		msg = MsgMap[status]
	}
	b := Body(msg, fields)
	if b["message"] == nil {
		b["message"] = "Error"
	}
	return b
}

// Abort 写出错误并终止后续处理
func Abort(c *gin.Context, status int, msg string, fields gin.H) {
	c.AbortWithStatusJSON(status, Error(status, msg, fields))
}
