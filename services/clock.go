package services

import "time"

// Clock 统一的时间源，过期判断都从这里取当前时间，测试中可注入假时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回真实系统时钟
func SystemClock() Clock { return systemClock{} }
