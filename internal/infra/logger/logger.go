package logger

import (
	"log"
	"sync"

	"go.uber.org/zap"
)

var once sync.Once

// Init 初始化全局 zap Logger，之后各处直接用 zap.L()
func Init() {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
		zap.ReplaceGlobals(l)
	})
}
