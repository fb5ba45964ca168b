// 贴图缓存：启动时读入并缩放到格子大小，目录变化时热更新
package memimg

import (
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

// Background 背景贴图名，会额外生成模糊版本 background_blur
const Background = "background"

// Cache 以贴图名（不含扩展名）为key的内存图片
type Cache struct {
	mu        sync.RWMutex
	images    map[string]image.Image
	blockSize int
}

// NewCache 创建空缓存，所有贴图缩放到 blockSize
func NewCache(blockSize int) *Cache {
	return &Cache{images: make(map[string]image.Image), blockSize: blockSize}
}

var defaultCache = NewCache(20)

// Default 进程内共用的贴图缓存
func Default() *Cache {
	return defaultCache
}

// LoadSprites 读入目录下的全部贴图到默认缓存
func LoadSprites(directory string, blockSize int) error {
	defaultCache.mu.Lock()
	defaultCache.blockSize = blockSize
	defaultCache.mu.Unlock()
	return defaultCache.Load(directory)
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load 遍历目录读入贴图，完成后补齐缺失的方向贴图
func (c *Cache) Load(directory string) error {
	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(path) {
			return nil
		}
		if err := c.loadFile(path); err != nil {
			log.Printf("skip sprite %s: %v", path, err)
		}
		return nil
	})
	c.fillRotations()
	return err
}

func (c *Cache) loadFile(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return err
	}
	name := spriteName(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if name == Background {
		// 背景保持原尺寸，渲染时再铺满
		c.images[name] = img
		c.images[name+"_blur"] = imaging.Blur(img, 3.5)
		return nil
	}
	c.images[name] = imaging.Resize(img, c.blockSize, c.blockSize, imaging.Lanczos)
	return nil
}

// fillRotations 只提供了朝右的蛇头/蛇尾或横向蛇身时，旋转生成其他方向
func (c *Cache) fillRotations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, prefix := range []string{"head_", "tail_"} {
		src, ok := c.images[prefix+"right"]
		if !ok {
			continue
		}
		derived := map[string]image.Image{
			prefix + "up":   imaging.Rotate90(src),
			prefix + "left": imaging.Rotate180(src),
			prefix + "down": imaging.Rotate270(src),
		}
		for name, img := range derived {
			if _, exists := c.images[name]; !exists {
				c.images[name] = img
			}
		}
	}
	if src, ok := c.images["body_horizontal"]; ok {
		if _, exists := c.images["body_vertical"]; !exists {
			c.images["body_vertical"] = imaging.Rotate90(src)
		}
	}
}

// Get 取贴图
func (c *Cache) Get(name string) (image.Image, bool) {
	c.mu.RLock()
	img, exists := c.images[name]
	c.mu.RUnlock()
	return img, exists
}

// Len 已缓存的贴图数量
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Watch 监听贴图目录，新增或修改的图片重新读入，done 关闭后退出
func (c *Cache) Watch(directory string, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isImage(event.Name) {
					continue
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					if err := c.loadFile(event.Name); err == nil {
						c.fillRotations()
						log.Printf("sprite reloaded: %s", spriteName(event.Name))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("sprite watcher error:", err)
			}
		}
	}()
	return nil
}

// WatchSprites 监听默认缓存的贴图目录
func WatchSprites(directory string, done <-chan struct{}) error {
	return defaultCache.Watch(directory, done)
}
