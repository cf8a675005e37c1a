package inbox

import (
	"cmp"
	"slices"

	"inbox-service/internal/models"
)

// compareMessages orders by created_at, then id. It is the single total
// order used for "latest" selection and timeline sorting.
func compareMessages(a, b models.Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Dedupe collapses messages sharing an id. The first occurrence keeps its
// position; is_read is merged monotonically so a redelivered insert never
// reverts a read flag.
func Dedupe(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	index := make(map[int]int, len(msgs))
	for _, m := range msgs {
		if i, ok := index[m.ID]; ok {
			out[i] = mergeDuplicate(out[i], m)
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

func mergeDuplicate(have, incoming models.Message) models.Message {
	have.IsRead = have.IsRead || incoming.IsRead
	return have
}

// SortMessages returns a copy of msgs in ascending timeline order.
func SortMessages(msgs []models.Message) []models.Message {
	out := slices.Clone(msgs)
	slices.SortStableFunc(out, compareMessages)
	return out
}
