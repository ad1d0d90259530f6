package server

import "time"

// Timer 可取消的一次性任务
type Timer interface {
	Stop() bool
}

// Scheduler 抽象 time.AfterFunc 与 time.Now，测试中可手动推进
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (realScheduler) Now() time.Time                          { return time.Now() }

// SystemScheduler 基于真实时间
var SystemScheduler Scheduler = realScheduler{}
