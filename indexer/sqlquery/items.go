package sqlquery

import (
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
)

// Items turns rows rendered by Select back into items carrying the selected keys. Empty
// values are left out.
func Items(rows []data.Row, keys []string) []*indexer.Item {
	items := make([]*indexer.Item, 0, len(rows))
	for _, row := range rows {
		if len(row) < len(keys)+2 {
			continue
		}
		item := &indexer.Item{
			Path:   row[0],
			Values: make(map[string]string, len(keys)),
		}
		for i, key := range keys {
			if value := row[i+2]; value != "" {
				item.Values[key] = value
			}
		}
		items = append(items, item)
	}
	return items
}
