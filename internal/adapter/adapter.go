package adapter

import (
	"fmt"

	"LotterySync/internal/config"
	"LotterySync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ProducerSet 按配置选出的主来源与可选回退来源
type ProducerSet struct {
	Primary  interfaces.RecordProducer
	Fallback interfaces.RecordProducer // 可为 nil
}

// NewProducerSet 从注册表创建 scraper.producer / scraper.fallback_producer 对应的实例
func NewProducerSet(cfg *config.Config, logger *logrus.Logger) (*ProducerSet, error) {
	logger.WithField("registered", ListFactories()).Info("已注册的数据来源")

	primary, err := build(cfg.Scraper.Producer, cfg, logger)
	if err != nil {
		return nil, err
	}
	set := &ProducerSet{Primary: primary}

	if name := cfg.Scraper.FallbackProducer; name != "" && name != cfg.Scraper.Producer {
		fallback, err := build(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		set.Fallback = fallback
	}
	return set, nil
}

func build(name string, cfg *config.Config, logger *logrus.Logger) (interfaces.RecordProducer, error) {
	factory, ok := GetFactory(name)
	if !ok {
		return nil, fmt.Errorf("未支持的数据来源: %s（已注册：%v）", name, ListFactories())
	}
	producer := factory(cfg, logger)
	if producer == nil {
		return nil, fmt.Errorf("数据来源%s的工厂函数返回nil", name)
	}
	logger.WithField("producer", producer.GetName()).Info("数据来源初始化成功")
	return producer, nil
}
