package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternKeyMaterializeReplacesLeftToRightNonOverlapping(t *testing.T) {
	key := PatternKey{
		Template: "events_stat_{}_{}_{}",
		Values:   []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "7"},
	}

	assert.Equal(t, "events_stat_2024-01-01T00:00:00Z_2024-01-02T00:00:00Z_7", key.Materialize())
}

func TestPatternKeyMaterializeWithFewerValuesThanPlaceholders(t *testing.T) {
	key := PatternKey{
		Template: "page_{}_{}",
		Values:   []string{"2"},
	}

	assert.Equal(t, "page_2_{}", key.Materialize())
}

func TestPatternRegistryRecordDeduplicates(t *testing.T) {
	r := NewPatternRegistry()

	r.Record("page_{}_{}", "page_1_50")
	r.Record("page_{}_{}", "page_1_50")
	r.Record("page_{}_{}", "page_2_50")

	assert.ElementsMatch(t, []string{"page_1_50", "page_2_50"}, r.Keys("page_{}_{}"))
}

func TestPatternRegistryClearDropsAllKeysForTemplate(t *testing.T) {
	r := NewPatternRegistry()

	r.Record("page_{}_{}", "page_1_50")
	r.Record("page_{}_{}", "page_2_50")
	r.Clear("page_{}_{}")

	assert.Empty(t, r.Keys("page_{}_{}"))
}
