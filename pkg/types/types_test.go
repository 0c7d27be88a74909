package types

import "testing"

func TestStrategyValid(t *testing.T) {
	for _, s := range []Strategy{StrategyRecency, StrategyFrequency, StrategyAdaptive} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Strategy{"", "random", "RECENCY"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestCacheNames(t *testing.T) {
	names := CacheNames()
	if len(names) != 4 {
		t.Fatalf("expected 4 cache names, got %d", len(names))
	}

	want := []CacheName{CacheMetadata, CachePaths, CacheArtifacts, CacheModules}
	for i, name := range names {
		if name != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], name)
		}
		if !name.Valid() {
			t.Errorf("%s should be valid", name)
		}
	}

	if CacheName("sessions").Valid() {
		t.Error("unknown name reported valid")
	}
}
