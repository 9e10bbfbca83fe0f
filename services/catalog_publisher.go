package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"useless-progression/gamification"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// CatalogKey is the object key the achievement catalog is published under.
const CatalogKey = "catalog/achievements.json"

// ObjectUploader stores a blob and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// CatalogDocument is the published shape of the achievement catalog.
type CatalogDocument struct {
	GeneratedAt       time.Time                                                      `json:"generated_at"`
	Count             int                                                            `json:"count"`
	TotalXP           int64                                                          `json:"total_xp"`
	TotalUselessBucks int64                                                          `json:"total_useless_bucks"`
	Categories        map[gamification.AchievementCategory]gamification.CategoryInfo `json:"categories"`
	Achievements      []gamification.AchievementToast                                `json:"achievements"`
	Milestones        []gamification.Milestone                                       `json:"milestones"`
}

type CatalogPublisher struct {
	Registry *gamification.Registry
	Uploader ObjectUploader
	Clock    clockwork.Clock
	Log      *zap.SugaredLogger
}

func NewCatalogPublisher(registry *gamification.Registry, uploader ObjectUploader, clock clockwork.Clock, log *zap.SugaredLogger) *CatalogPublisher {
	return &CatalogPublisher{Registry: registry, Uploader: uploader, Clock: clock, Log: log}
}

// Document renders the catalog in rarity order.
func (p *CatalogPublisher) Document() CatalogDocument {
	defs := p.Registry.ByRarity()
	doc := CatalogDocument{
		GeneratedAt:       p.Clock.Now().UTC(),
		Count:             p.Registry.Count(),
		TotalXP:           p.Registry.TotalPossibleXP(),
		TotalUselessBucks: p.Registry.TotalPossibleUselessBucks(),
		Categories:        p.Registry.Categories(),
		Achievements:      make([]gamification.AchievementToast, 0, len(defs)),
		Milestones:        gamification.Milestones,
	}
	for _, d := range defs {
		doc.Achievements = append(doc.Achievements, gamification.ToastFor(d))
	}
	return doc
}

// Publish uploads the catalog and returns its URL.
func (p *CatalogPublisher) Publish(ctx context.Context) (string, error) {
	if p.Uploader == nil {
		return "", fmt.Errorf("catalog publishing is not configured")
	}
	body, err := json.MarshalIndent(p.Document(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}
	url, err := p.Uploader.Upload(ctx, CatalogKey, body, "application/json")
	if err != nil {
		return "", err
	}
	p.Log.Infow("📦 achievement catalog published", "url", url, "count", p.Registry.Count())
	return url, nil
}
