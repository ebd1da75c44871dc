package pages

import (
	"fmt"
	"sort"
)

const (
	// IDField is the key carrying a backend id in item payloads.
	IDField = "_id"
	// DisplayOrderField is the persisted rank of an item.
	DisplayOrderField = "display_order"

	altIDField = "id"
)

// ServerItem is the wire form of an item: its fields plus display_order and, for
// server identities only, _id.
type ServerItem map[string]any

// PrepareForSave serializes the collection in its current order. display_order is
// always re-derived from position; client-temporary identities are omitted so the
// backend creates new records for them.
func PrepareForSave(c *Collection) []ServerItem {
	items := c.Items()
	out := make([]ServerItem, len(items))
	for i, item := range items {
		entry := make(ServerItem, len(item.Fields)+2)
		for k, v := range item.Fields {
			if k == IDField || k == altIDField || k == DisplayOrderField {
				continue
			}
			entry[k] = v
		}
		if item.ID.IsServer() {
			entry[IDField] = item.ID.String()
		}
		entry[DisplayOrderField] = item.Position
		out[i] = entry
	}
	return out
}

// ReorderPayload builds the reorder request for a collection. Items without a
// server identity are skipped; they get their order with the next full save.
// The remaining items are ranked 0..n-1 in collection order.
func ReorderPayload(c *Collection) ReorderRequest {
	req := ReorderRequest{Section: c.Name(), Items: []ReorderItem{}}
	for _, item := range c.Items() {
		if !item.ID.IsServer() {
			continue
		}
		req.Items = append(req.Items, ReorderItem{ID: item.ID.String(), DisplayOrder: len(req.Items)})
	}
	return req
}

// ItemsFromServer decodes a backend list into items ordered by display_order.
// Entries lacking display_order keep their relative position after ordered ones.
// A repeated id keeps its first entry; later ones get a temporary identity and
// are saved as new records.
func ItemsFromServer(raw []any, newID func() string) ([]Item, error) {
	if newID == nil {
		newID = NewTempID
	}
	type ranked struct {
		item  Item
		order float64
		has   bool
	}
	list := make([]ranked, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("pages: item %d is %T, want object", i, entry)
		}
		fields := make(Fields, len(obj))
		var (
			id    Identity
			order float64
			has   bool
		)
		for k, v := range obj {
			switch k {
			case IDField, altIDField:
				if s, ok := v.(string); ok && id.IsZero() {
					id = IdentityFromServer(s)
				}
			case DisplayOrderField:
				order, has = toFloat(v)
			default:
				fields[k] = cloneValue(v)
			}
		}
		if _, dup := seen[id.String()]; dup || id.IsZero() {
			id = ClientID(newID())
		}
		seen[id.String()] = struct{}{}
		list = append(list, ranked{item: Item{ID: id, Fields: fields}, order: order, has: has})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].has != list[j].has {
			return list[i].has
		}
		return list[i].has && list[i].order < list[j].order
	})
	items := make([]Item, len(list))
	for i, r := range list {
		r.item.Position = i
		items[i] = r.item
	}
	return items, nil
}

func toFloat(v any) (float64, bool) {
	switch n := normalizeValue(v).(type) {
	case float64:
		return n, true
	default:
		return 0, false
	}
}
