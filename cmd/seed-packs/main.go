package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ZEBDA1/McHess/internal/config"
	mongorepo "github.com/ZEBDA1/McHess/internal/repository/mongo"
	"github.com/ZEBDA1/McHess/internal/service"
)

// 手动初始化礼包目录的小工具，空库时写入默认礼包
func main() {
	cfg := config.Load()
	db := mongorepo.Init(&cfg.Mongo)
	repo := mongorepo.NewPackRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seeded, err := service.SeedPacks(ctx, repo)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	if !seeded {
		fmt.Println("packs already present, nothing to do")
		return
	}
	for _, p := range service.DefaultPacks() {
		fmt.Printf("seeded %-14s %s€\n", p.Name, fmt.Sprintf("%.2f", p.Price))
	}
}
