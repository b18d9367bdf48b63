package events

import (
	"context"
	"encoding/json"
	"log"
)

// Feed writes domain events to the append-only log and, when a broker
// is configured, fans them out. Both sinks are best-effort: failures
// are logged and never surfaced to the caller.
type Feed struct {
	repo   *EventRepo
	pub    Publisher
	siteID string
}

// NewFeed accepts nil for either sink.
func NewFeed(repo *EventRepo, pub Publisher, siteID string) *Feed {
	return &Feed{repo: repo, pub: pub, siteID: siteID}
}

// Emit is safe on a nil Feed.
func (f *Feed) Emit(ctx context.Context, typ, key string, data interface{}) {
	if f == nil {
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("marshal %s event: %v", typ, err)
		return
	}
	if f.repo != nil {
		if err := f.repo.Append(ctx, Event{SiteID: f.siteID, Type: typ, Key: key, DataJSON: string(body)}); err != nil {
			log.Printf("append %s event: %v", typ, err)
		}
	}
	if f.pub != nil {
		if err := f.pub.Publish(ctx, typ, body); err != nil {
			log.Printf("publish %s event: %v", typ, err)
		}
	}
}
