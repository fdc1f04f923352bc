//go:build darwin
// +build darwin

package activeapp

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// macOS 上通过 System Events 查询当前前台应用名称
const frontAppScript = `
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
end tell
return appName
`

// CurrentApp 返回当前前台应用的名称
// osascript 调用失败或超时视为瞬时错误，由调用方决定跳过本次采样
func CurrentApp() (string, error) {
	cmd := exec.Command("osascript", "-e", frontAppScript)

	done := make(chan struct{})
	var out []byte
	var err error
	go func() {
		out, err = cmd.Output()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		// osascript 偶尔会卡住（如锁屏时），强制结束避免阻塞采样循环
		_ = cmd.Process.Kill()
		return "", fmt.Errorf("osascript timed out")
	}

	if err != nil {
		return "", fmt.Errorf("osascript failed: %w", err)
	}

	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", fmt.Errorf("empty application name")
	}
	return name, nil
}
