package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-bonus/api"
	"github.com/hoshinonyaruko/snake-bonus/config"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/memimg"
	"github.com/hoshinonyaruko/snake-bonus/sqlite"
)

func main() {
	EnsureFoldersExist()
	// 初始化配置
	cfg := config.LoadConfig("./config.json")
	// 玩家设置，文件变化时热更新
	settings, err := config.OpenSettings(cfg.Settings)
	if err != nil {
		log.Fatalf("Failed to open settings: %v", err)
	}
	done := make(chan struct{})
	defer close(done)
	if err := settings.Watch(done); err != nil {
		log.Printf("settings hot reload disabled: %v", err)
	}
	// 获取blockSize
	blockSize := config.GetConfigValue("blocksize").(int)
	// 载入贴图到内存 加速绘图
	if err := memimg.LoadSprites(cfg.Sprites, blockSize); err != nil {
		log.Printf("Failed to load sprites: %v", err)
	}
	// 检测并热更新到内存
	if err := memimg.WatchSprites(cfg.Sprites, done); err != nil {
		log.Printf("sprite hot reload disabled: %v", err)
	}
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	hub := api.NewHub(api.Options{
		Grid:      grid.New(cfg.Width, cfg.Height, cfg.CellSize),
		BlockSize: blockSize,
		TickRate:  cfg.TickRate,
		SelfPath:  cfg.SelfPath,
		StaticDir: "./static",
		Store:     store,
		Settings:  settings,
		Sprites:   memimg.Default(),
	})
	router := gin.Default()
	hub.Register(router)
	router.Static("/static", "./static") // 静态文件服务
	// 从配置单例读取端口 监听
	if err := router.Run(":" + config.GetConfigValue("port").(string)); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// EnsureFoldersExists 检查并创建必需的文件夹
func EnsureFoldersExist() {
	folders := []string{"static", "sprites"}

	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			err := os.Mkdir(folder, 0755) // 使用0755权限以确保读写权限
			if err != nil {
				// 如果创建失败，则记录错误并可能退出程序
				log.Fatalf("Failed to create %s directory: %s", folder, err)
			}
			log.Printf("Created %s directory", folder)
		} else {
			// 文件夹已存在
			log.Printf("%s directory already exists", folder)
		}
	}
}
