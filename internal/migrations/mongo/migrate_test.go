package mongo

import (
	"testing"

	"atelier/internal/slots/repository"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections(t *testing.T) {
	defs := Collections()
	for _, name := range []string{repository.SlotsCollection, repository.ClaimsCollection} {
		def, ok := defs[name]
		if !ok {
			t.Fatalf("collection %s not migrated", name)
		}
		if len(def.Indexes) == 0 {
			t.Errorf("collection %s has no indexes", name)
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s has no json schema", name)
		}
	}
}

func TestSlotsIndexes_ListingIndexLeadsWithProvider(t *testing.T) {
	keys, ok := SlotsIndexes[0].Keys.(bson.D)
	if !ok {
		t.Fatalf("unexpected key type %T", SlotsIndexes[0].Keys)
	}
	want := []string{"provider_uid", "status", "scheduled_at"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i, k := range keys {
		if k.Key != want[i] {
			t.Errorf("key[%d] = %s, want %s", i, k.Key, want[i])
		}
	}
}
