package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	rec := New("Post", map[string]interface{}{"title": "hello"})

	assert.True(t, rec.IsNewRecord())
	assert.False(t, rec.IsPersisted())
	assert.Nil(t, rec.ID())

	rec.SetID("p1")
	rec.MarkPersisted()
	assert.False(t, rec.IsNewRecord())
	assert.True(t, rec.IsPersisted())

	rec.MarkDestroyed()
	assert.False(t, rec.IsPersisted())
	assert.True(t, rec.IsDestroyed())
}

func TestAttributesCopied(t *testing.T) {
	attrs := map[string]interface{}{"title": "hello"}
	rec := New("Post", attrs)

	attrs["title"] = "changed"
	v, ok := rec.Get("title")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	out := rec.Attributes()
	out["title"] = "changed again"
	v, _ = rec.Get("title")
	assert.Equal(t, "hello", v)
}

func TestSameIdentity(t *testing.T) {
	a := NewPersisted("Post", map[string]interface{}{"id": "p1"})
	b := NewPersisted("Post", map[string]interface{}{"id": "p1"})
	c := NewPersisted("Post", map[string]interface{}{"id": "p2"})
	other := NewPersisted("Comment", map[string]interface{}{"id": "p1"})
	unsaved := New("Post", nil)

	assert.True(t, a.SameIdentity(b))
	assert.True(t, a.SameIdentity(a))
	assert.False(t, a.SameIdentity(c))
	assert.False(t, a.SameIdentity(other))
	assert.False(t, a.SameIdentity(unsaved))
	assert.False(t, unsaved.SameIdentity(a))
	assert.True(t, unsaved.SameIdentity(unsaved))
	assert.False(t, a.SameIdentity(nil))
}

func TestValidationErrors(t *testing.T) {
	rec := New("Post", nil)
	assert.False(t, rec.HasErrors())

	rec.AddError("title", "cannot be blank")
	rec.AddError("title", "too short")
	assert.True(t, rec.HasErrors())
	require.Len(t, rec.Errors(), 2)

	ve := NewValidationError(rec)
	assert.Contains(t, ve.Error(), "Post")
	assert.Contains(t, ve.Error(), "2 errors")

	rec.ClearErrors()
	assert.False(t, rec.HasErrors())
}

func TestDestroyedBy(t *testing.T) {
	rec := NewPersisted("Comment", map[string]interface{}{"id": "c1"})
	rec.MarkDestroyedBy("comments")

	assert.True(t, rec.IsDestroyed())
	assert.Equal(t, "comments", rec.DestroyedBy())
}

func TestAssociationState(t *testing.T) {
	rec := New("Post", nil)

	_, ok := rec.AssociationState("comments")
	assert.False(t, ok)

	rec.SetAssociationState("comments", 42)
	v, ok := rec.AssociationState("comments")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	rec.ClearAssociationState("comments")
	_, ok = rec.AssociationState("comments")
	assert.False(t, ok)
}

func TestReferences(t *testing.T) {
	post := NewPersisted("Post", map[string]interface{}{"id": "p1"})
	comment := New("Comment", nil)

	comment.SetReference("post", post)
	got, ok := comment.Reference("post")
	require.True(t, ok)
	assert.Same(t, post, got)
}
