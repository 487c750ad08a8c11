package item

import (
	"time"

	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
)

// SampleItems returns the demo found items a fresh store starts with.
func SampleItems(now time.Time) []domitem.Item {
	return []domitem.Item{
		domitem.Reconstruct("item-1", domitem.Fields{
			Title:       "Black Wallet",
			Image:       "/sample-found/item-1.svg",
			Labels:      []string{"wallet", "leather", "accessory", "black"},
			Description: "Small black leather wallet",
			Location:    "Central Library",
			SavedBy:     domitem.SavedByPeer,
		}, nil, now),
		domitem.Reconstruct("item-2", domitem.Fields{
			Title:        "Silver Ring",
			Image:        "/sample-found/item-2.svg",
			Labels:       []string{"ring", "jewelry", "silver"},
			Description:  "Thin silver band with engraving",
			Location:     "Main Bus Station",
			DeskLocation: "Central Station Desk",
			SavedBy:      domitem.SavedByDesk,
		}, nil, now),
		domitem.Reconstruct("item-3", domitem.Fields{
			Title:       "Blue Backpack",
			Image:       "/sample-found/item-3.svg",
			Labels:      []string{"backpack", "bag", "blue", "fabric"},
			Description: "Large blue backpack with side pockets",
			Location:    "Campus Quad",
			SavedBy:     domitem.SavedByPeer,
		}, nil, now),
	}
}
