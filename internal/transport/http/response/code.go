package response

// 错误响应中 error 字段的固定取值
const (
	LabelInvalidID       = "Invalid ID"
	LabelValidation      = "Validation Error"
	LabelRouteNotFound   = "Route not found"
	LabelCORS            = "CORS policy violation"
	LabelTooManyRequests = "Too many requests from this IP, please try again later."
	LabelInternal        = "Internal Server Error"
)

// MsgMap 状态码对应的默认 message
var MsgMap = map[int]string{
	400: "Bad Request",
	401: "Access denied",
	403: "Forbidden",
	404: "Not Found",
	408: "Request timeout",
	413: "Request body too large",
	429: "Too many requests",
	500: "Internal Server Error",
	503: "Server busy",
	504: "Request timeout",
}
