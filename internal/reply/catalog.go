package reply

import (
	"sync"

	"github.com/Proton-105/rumor-bot/internal/i18n"
)

// Catalog hands out one Composer per language.
type Catalog struct {
	manager *i18n.Manager
	cfg     Config

	mu        sync.RWMutex
	composers map[string]*Composer
}

func NewCatalog(manager *i18n.Manager, cfg Config) *Catalog {
	return &Catalog{
		manager:   manager,
		cfg:       cfg,
		composers: make(map[string]*Composer),
	}
}

// Composer returns the composer for lang, falling back to the default language.
func (c *Catalog) Composer(lang string) *Composer {
	tr := c.manager.Translator(lang)
	key := tr.Lang()

	c.mu.RLock()
	composer, ok := c.composers[key]
	c.mu.RUnlock()
	if ok {
		return composer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if composer, ok = c.composers[key]; ok {
		return composer
	}
	composer = NewComposer(tr, c.cfg)
	c.composers[key] = composer
	return composer
}
