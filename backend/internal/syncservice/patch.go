package syncservice

import (
	"encoding/json"
	"fmt"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

// translate 行变成 put，墓碑变成 del；全量时最前面加一个 clear
func translate(changes []repo.Change, full bool) ([]Patch, error) {
	patch := make([]Patch, 0, len(changes)+1)
	if full {
		patch = append(patch, Patch{Op: OpClear})
	}
	for _, c := range changes {
		key := entity.Key(c.Kind, c.ID)
		if c.Deleted() {
			patch = append(patch, Patch{Op: OpDel, Key: key})
			continue
		}
		value, err := json.Marshal(c.Row)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		patch = append(patch, Patch{Op: OpPut, Key: key, Value: value})
	}
	return patch, nil
}
