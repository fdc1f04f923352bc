//go:build !windows && !darwin
// +build !windows,!darwin

package activeapp

import "fmt"

// CurrentApp 其他平台暂不支持前台应用检测
// 采样循环会把该错误当作瞬时失败跳过
func CurrentApp() (string, error) {
	return "", fmt.Errorf("active application detection not supported on this platform")
}
