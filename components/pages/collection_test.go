package pages

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("temp-%d", n)
	}
}

func titleSchema() *Schema {
	return NewSchema(Field("title",
		validation.Required.Error("title is required"),
		validation.RuneLength(3, 100).Error("title must be between 3 and 100 characters")))
}

func seededCollection(t *testing.T, titles ...string) *Collection {
	t.Helper()
	c := NewCollection("slides", titleSchema(), WithIDGenerator(sequentialIDs()))
	for _, title := range titles {
		if _, err := c.Add(Fields{"title": title}); err != nil {
			t.Fatalf("Add(%s) returned error: %v", title, err)
		}
	}
	return c
}

func titles(c *Collection) []string {
	items := c.Items()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Fields.String("title")
	}
	return out
}

func assertPositionsContiguous(t *testing.T, c *Collection) {
	t.Helper()
	for i, item := range c.Items() {
		if item.Position != i {
			t.Fatalf("expected position %d, got %d for %s", i, item.Position, item.ID)
		}
	}
}

func TestCollectionAddAssignsTemporaryIdentity(t *testing.T) {
	c := seededCollection(t, "First slide")
	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.ID.IsZero() || item.ID.IsServer() {
		t.Fatalf("expected client-temporary identity, got %#v", item.ID)
	}
	if item.ID.String() != "temp-1" {
		t.Fatalf("expected generator id, got %s", item.ID)
	}
	if !c.Dirty() {
		t.Fatalf("expected collection to be dirty after add")
	}
}

func TestCollectionAddRejectsInvalidFields(t *testing.T) {
	c := seededCollection(t)
	_, err := c.Add(Fields{"title": "ab"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "title" || verr.Section != "slides" {
		t.Fatalf("unexpected validation error %#v", verr)
	}
	if c.Len() != 0 {
		t.Fatalf("expected rejected item to be absent")
	}
}

func TestCollectionAddItemRejectsDuplicateIdentity(t *testing.T) {
	c := seededCollection(t)
	if _, err := c.AddItem(Item{ID: ServerID(serverA), Fields: Fields{"title": "One"}}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	_, err := c.AddItem(Item{ID: ServerID(serverA), Fields: Fields{"title": "Two"}})
	if !errors.Is(err, errDuplicateIdentity) {
		t.Fatalf("expected duplicate identity error, got %v", err)
	}
}

func TestCollectionUpdateMergesAndKeepsPosition(t *testing.T) {
	c := seededCollection(t, "Alpha", "Beta", "Gamma")
	target := c.Items()[1]
	updated, err := c.Update(target.ID, Fields{"subtitle": "second"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Position != 1 || updated.Fields.String("title") != "Beta" || updated.Fields.String("subtitle") != "second" {
		t.Fatalf("unexpected updated item %#v", updated)
	}
	if _, err := c.Update(ClientID("missing"), Fields{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectionUpdateRejectsInvalidMerge(t *testing.T) {
	c := seededCollection(t, "Alpha")
	id := c.Items()[0].ID
	if _, err := c.Update(id, Fields{"title": ""}); err == nil {
		t.Fatalf("expected validation error")
	}
	item, _ := c.Get(id)
	if item.Fields.String("title") != "Alpha" {
		t.Fatalf("expected stored item unchanged, got %#v", item.Fields)
	}
}

func TestCollectionRemoveKeepsPositionsContiguous(t *testing.T) {
	c := seededCollection(t, "Alpha", "Beta", "Gamma", "Delta")
	c.Remove(c.Items()[1].ID)
	assertPositionsContiguous(t, c)
	if got := titles(c); fmt.Sprint(got) != "[Alpha Gamma Delta]" {
		t.Fatalf("unexpected order %v", got)
	}
	c.Remove(ClientID("unknown"))
	if c.Len() != 3 {
		t.Fatalf("expected removing unknown id to be a no-op")
	}
}

func TestCollectionMovePreservesMultiset(t *testing.T) {
	c := seededCollection(t, "Ant", "Bee", "Cat", "Dog", "Elk")
	before := map[Identity]bool{}
	for _, item := range c.Items() {
		before[item.ID] = true
	}
	moves := [][2]int{{0, 4}, {4, 0}, {1, 3}, {3, 1}, {2, 2}, {4, 2}}
	for _, m := range moves {
		if err := c.Move(m[0], m[1]); err != nil {
			t.Fatalf("Move(%d,%d) returned error: %v", m[0], m[1], err)
		}
		assertPositionsContiguous(t, c)
		if c.Len() != len(before) {
			t.Fatalf("expected %d items after move, got %d", len(before), c.Len())
		}
		for _, item := range c.Items() {
			if !before[item.ID] {
				t.Fatalf("unexpected identity %s after move", item.ID)
			}
		}
	}
}

func TestCollectionMoveShiftsItems(t *testing.T) {
	c := seededCollection(t, "Ant", "Bee", "Cat", "Dog")
	if err := c.Move(0, 2); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if got := fmt.Sprint(titles(c)); got != "[Bee Cat Ant Dog]" {
		t.Fatalf("unexpected order after forward move: %s", got)
	}
	if err := c.Move(3, 0); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if got := fmt.Sprint(titles(c)); got != "[Dog Bee Cat Ant]" {
		t.Fatalf("unexpected order after backward move: %s", got)
	}
}

func TestCollectionMoveSamePositionIsNoop(t *testing.T) {
	c := seededCollection(t, "Ant", "Bee")
	c.MarkClean()
	if err := c.Move(1, 1); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if c.Dirty() {
		t.Fatalf("expected no-op move to leave collection clean")
	}
}

func TestCollectionMoveOutOfRange(t *testing.T) {
	c := seededCollection(t, "Ant", "Bee")
	for _, m := range [][2]int{{-1, 0}, {0, 2}, {2, 0}} {
		if err := c.Move(m[0], m[1]); !errors.Is(err, errPositionOutOfRange) {
			t.Fatalf("Move(%d,%d): expected out of range error, got %v", m[0], m[1], err)
		}
	}
	if got := fmt.Sprint(titles(c)); got != "[Ant Bee]" {
		t.Fatalf("expected order unchanged, got %s", got)
	}
}

func TestCollectionSnapshotsDoNotAlias(t *testing.T) {
	c := seededCollection(t, "Alpha")
	item := c.Items()[0]
	item.Fields["title"] = "mutated"
	stored, _ := c.Get(item.ID)
	if stored.Fields.String("title") != "Alpha" {
		t.Fatalf("expected stored fields to be isolated from snapshots")
	}
}

func TestCollectionReplaceResetsState(t *testing.T) {
	c := seededCollection(t, "Alpha")
	c.Session().BeginAdd(nil)
	c.Replace([]Item{{ID: ServerID(serverA), Fields: Fields{"title": "Loaded"}}})
	if c.Dirty() {
		t.Fatalf("expected replace to clear dirty flag")
	}
	if c.Session().Mode() != SessionIdle {
		t.Fatalf("expected replace to reset the session")
	}
	if c.Len() != 1 || !c.Items()[0].ID.IsServer() {
		t.Fatalf("unexpected items after replace: %#v", c.Items())
	}
}

func TestCollectionValidateReportsFirstFailure(t *testing.T) {
	c := NewCollection("slides", titleSchema())
	c.Replace([]Item{
		{ID: ServerID(serverA), Fields: Fields{"title": "Good title"}},
		{ID: ServerID(serverB), Fields: Fields{"title": ""}},
		{ID: ServerID(serverC), Fields: Fields{"title": "x"}},
	})
	err := c.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Item != ServerID(serverB) {
		t.Fatalf("expected first failing item to be reported, got %s", verr.Item)
	}
}
