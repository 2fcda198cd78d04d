// internal/adapter/registry.go
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"LotterySync/internal/config"
	"LotterySync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// Factory 数据来源工厂函数
type Factory func(cfg *config.Config, logger *logrus.Logger) interfaces.RecordProducer

var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[string]Factory)
)

// Register 供各来源包 init 调用
func Register(name string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("数据来源%s的工厂函数不能为nil", name))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[name]; exists {
		logrus.Warnf("数据来源%s已注册，将覆盖原有实现", name)
	}
	factoryRegistry[name] = factory
}

// GetFactory 获取指定来源的工厂函数
func GetFactory(name string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factoryRegistry[name]
	return factory, ok
}

// ListFactories 已注册的来源名称（排序后）
func ListFactories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
