package xgo

import "encoding/json"

// ToJSON 日志打印用, 失败返回错误描述
func ToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "json error: " + err.Error()
	}
	return string(b)
}
