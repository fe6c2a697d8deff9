package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

// DefaultCacheSize is the number of decoded photos kept when NewImageCache is
// given a non-positive limit. Phone photos decode to tens of megabytes each.
const DefaultCacheSize = 8

type cachedPhoto struct {
	img    image.Image
	format string
}

// ImageCache keeps recently decoded capture photos so that a rescan or a
// calibration tap on the same photo does not decode it again.
//
// The cache is keyed by the exact path string and holds at most limit photos;
// when full, the oldest insertion is dropped. ImageCache is safe for
// concurrent use by multiple goroutines.
//
//	cache := imaging.NewImageCache(0)
//	img, err := cache.Load("/photos/A1.jpg")
//	if err != nil {
//	    return err
//	}
//	defer cache.Evict("/photos/A1.jpg")
type ImageCache struct {
	mu     sync.RWMutex
	limit  int
	order  []string
	images map[string]cachedPhoto
}

// NewImageCache creates an empty cache holding at most limit photos.
func NewImageCache(limit int) *ImageCache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &ImageCache{
		limit:  limit,
		images: make(map[string]cachedPhoto),
	}
}

// Load returns the decoded photo at path, reading it from disk on a miss.
// PNG, JPEG and GIF are supported.
func (c *ImageCache) Load(path string) (image.Image, error) {
	p, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return p.img, nil
}

func (c *ImageCache) load(path string) (cachedPhoto, error) {
	c.mu.RLock()
	if p, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return cachedPhoto{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return cachedPhoto{}, fmt.Errorf("failed to decode image: %w", err)
	}
	p := cachedPhoto{img: img, format: format}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.images[path]; ok {
		return existing, nil
	}
	for len(c.order) >= c.limit {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.images[path] = p
	c.order = append(c.order, path)
	return p, nil
}

func (c *ImageCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Evict removes one photo. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// PhotoInfo describes a capture photo.
type PhotoInfo struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Format is the decoder name reported by image.Decode: "png", "jpeg" or
	// "gif".
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// Describe loads a photo through the cache and reports its dimensions,
// format and size on disk.
func Describe(cache *ImageCache, path string) (*PhotoInfo, error) {
	p, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	bounds := p.img.Bounds()
	return &PhotoInfo{
		Path:          path,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        p.format,
		FileSizeBytes: stat.Size(),
	}, nil
}
