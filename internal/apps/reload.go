package apps

import (
	"strings"

	"github.com/hotstart/hotstart/internal/preload"
)

// AdoptState carries the live state of prev over to the records in next
// that come from the same config file, so a reload does not forget hot
// instances. It returns the records of prev that have no successor.
func AdoptState(prev, next []*preload.Record) (removed []*preload.Record) {
	byName := make(map[string]*preload.Record, len(prev))
	for _, r := range prev {
		byName[strings.ToLower(r.ConfigName)] = r
	}

	for _, r := range next {
		key := strings.ToLower(r.ConfigName)
		if old, ok := byName[key]; ok {
			r.Adopt(old)
			delete(byName, key)
		}
	}

	for _, r := range prev {
		if _, gone := byName[strings.ToLower(r.ConfigName)]; gone {
			removed = append(removed, r)
		}
	}
	return removed
}
