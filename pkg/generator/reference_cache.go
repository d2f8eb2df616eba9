package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-image-kit/imgutil"

	"github.com/shouni/go-storybook-kit/pkg/synth"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 10 * time.Minute
)

// ReferenceCache は参照画像のバイト列をパスごとにキャッシュします。
// 同じキャラクター画像を複数のシーンで使い回すため、ストアへの読み込みを1回にします。
type ReferenceCache struct {
	store ArtifactStore
	cache *cache.Cache
}

// NewReferenceCache は ReferenceCache を生成します。
func NewReferenceCache(store ArtifactStore, expiration time.Duration) *ReferenceCache {
	if expiration <= 0 {
		expiration = defaultCacheExpiration
	}
	return &ReferenceCache{
		store: store,
		cache: cache.New(expiration, cacheCleanupInterval),
	}
}

// Load は参照画像を読み込みます。キャッシュにあればストアを読みません。
func (c *ReferenceCache) Load(ctx context.Context, sectionID, path string) (synth.ReferenceImage, error) {
	if v, ok := c.cache.Get(path); ok {
		if img, ok := v.(synth.ReferenceImage); ok {
			img.SectionID = sectionID
			return img, nil
		}
	}

	data, err := c.store.Read(ctx, path)
	if err != nil {
		return synth.ReferenceImage{}, fmt.Errorf("参照画像 '%s' の読み込みに失敗しました: %w", path, err)
	}
	img := synth.ReferenceImage{
		SectionID: sectionID,
		Data:      data,
		MimeType:  imgutil.GuessMIMEType(path),
	}
	c.cache.Set(path, img, cache.DefaultExpiration)
	return img, nil
}

// Put は生成直後の画像をキャッシュに入れます。
func (c *ReferenceCache) Put(path string, art *synth.Artifact) {
	if art == nil {
		return
	}
	c.cache.Set(path, synth.ReferenceImage{Data: art.Data, MimeType: art.MimeType}, cache.DefaultExpiration)
}

// Len はキャッシュ件数を返します。
func (c *ReferenceCache) Len() int {
	return c.cache.ItemCount()
}
