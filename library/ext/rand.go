package ext

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

var (
	mu    sync.Mutex
	srand = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Seed 重置全局随机源, 复盘或测试时使用
func Seed(seed int64) {
	mu.Lock()
	srand = rand.New(rand.NewSource(seed))
	mu.Unlock()
}

// RandInt 返回 [min, max) 区间的随机数
func RandInt[T constraints.Integer](min T, max T) T {
	if max <= min {
		return min
	}
	mu.Lock()
	n := srand.Int63n(int64(max - min))
	mu.Unlock()
	return T(n) + min
}
