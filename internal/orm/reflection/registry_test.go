package reflection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatekit/relate/internal/orm/record"
)

// stubRuntime records accesses so accessor wiring can be observed without
// the association package.
type stubRuntime struct {
	owner *record.Record
	ref   *Reflection
	reads *int
}

func (s stubRuntime) ReadValue(ctx context.Context, forceReload bool) (interface{}, error) {
	*s.reads++
	return s.ref.Name(), nil
}

func (s stubRuntime) WriteValue(ctx context.Context, value interface{}) error {
	return nil
}

func TestRegistryDefine(t *testing.T) {
	reg := NewRegistry()

	post, err := reg.Define("Post", nil, "id", "title")
	require.NoError(t, err)
	assert.Equal(t, "Post", post.Name())
	assert.True(t, post.HasAttribute("title"))
	assert.False(t, post.HasAttribute("body"))

	_, err = reg.Define("Post", nil)
	assert.Error(t, err)

	_, err = reg.Define("not valid", nil)
	assert.Error(t, err)

	got, ok := reg.Get("Post")
	require.True(t, ok)
	assert.Same(t, post, got)
	assert.Equal(t, []string{"Post"}, reg.List())
	assert.Equal(t, 1, reg.Count())
}

func TestSubtypeCopiesParentReflections(t *testing.T) {
	reg := NewRegistry()
	b := NewBuilder(reg, nil)

	post, err := reg.Define("Post", nil, "id", "title")
	require.NoError(t, err)
	_, err = b.Build(post, "comments", ToMany, nil)
	require.NoError(t, err)

	guide, err := reg.Define("Guide", post, "steps")
	require.NoError(t, err)

	// The subtype sees its own plus ancestor relationships.
	ref, ok := guide.Reflection("comments")
	require.True(t, ok)
	assert.Equal(t, "Comment", ref.RelatedName())
	assert.True(t, guide.HasAttribute("title"))
	assert.True(t, guide.HasAttribute("steps"))
	assert.False(t, post.HasAttribute("steps"))

	// The copy is explicit, not shared: a relationship declared on the
	// parent after the subtype exists does not appear on the subtype.
	_, err = b.Build(post, "reviews", ToMany, nil)
	require.NoError(t, err)
	_, ok = guide.Reflection("reviews")
	assert.False(t, ok)

	// A subtype may declare its own without touching the parent.
	_, err = b.Build(guide, "attachments", ToMany, nil)
	require.NoError(t, err)
	_, ok = post.Reflection("attachments")
	assert.False(t, ok)
}

func TestIsA(t *testing.T) {
	reg := NewRegistry()
	post, _ := reg.Define("Post", nil, "id")
	guide, _ := reg.Define("Guide", post, "id")
	other, _ := reg.Define("Other", nil, "id")

	assert.True(t, guide.IsA(post))
	assert.True(t, guide.IsA(guide))
	assert.False(t, post.IsA(guide))
	assert.False(t, other.IsA(post))
}

func TestTypeMatchesIncludesSubtypes(t *testing.T) {
	reg := NewRegistry()
	b := NewBuilder(reg, nil)

	blog, err := reg.Define("Blog", nil, "id")
	require.NoError(t, err)
	_, err = reg.Define("Post", nil, "id")
	require.NoError(t, err)
	post, _ := reg.Get("Post")
	_, err = reg.Define("Guide", post, "id")
	require.NoError(t, err)

	ref, err := b.Build(blog, "posts", ToMany, nil)
	require.NoError(t, err)

	assert.True(t, ref.TypeMatches("Post"))
	assert.True(t, ref.TypeMatches("Guide"))
	assert.False(t, ref.TypeMatches("Blog"))
	assert.False(t, ref.TypeMatches("Nope"))
}

func TestAccessorTable(t *testing.T) {
	reads := 0
	factory := func(owner *record.Record, ref *Reflection) Runtime {
		return stubRuntime{owner: owner, ref: ref, reads: &reads}
	}

	reg := NewRegistry()
	b := NewBuilder(reg, factory)

	post, err := reg.Define("Post", nil, "id", "title")
	require.NoError(t, err)
	_, err = b.Build(post, "comments", ToMany, nil)
	require.NoError(t, err)

	owner := record.New("Post", map[string]interface{}{"id": "p1"})

	v, err := post.ReadRelation(context.Background(), owner, "comments", false)
	require.NoError(t, err)
	assert.Equal(t, "comments", v)
	assert.Equal(t, 1, reads)

	err = post.WriteRelation(context.Background(), owner, "comments", nil)
	assert.NoError(t, err)

	_, err = post.ReadRelation(context.Background(), owner, "missing", false)
	assert.ErrorIs(t, err, ErrNoAccessor)
}

func TestAccessorNotInstalledOverAttribute(t *testing.T) {
	factory := func(owner *record.Record, ref *Reflection) Runtime {
		return stubRuntime{owner: owner, ref: ref, reads: new(int)}
	}

	reg := NewRegistry()
	b := NewBuilder(reg, factory)

	// "tags" is already a plain attribute of Post; declaring a relationship
	// with the same name must not shadow it.
	post, err := reg.Define("Post", nil, "id", "tags")
	require.NoError(t, err)
	_, err = b.Build(post, "tags", ToMany, nil)
	require.NoError(t, err)

	_, ok := post.Reflection("tags")
	assert.True(t, ok, "reflection should still be registered")
	assert.False(t, post.HasAccessor("tags"), "accessor must not shadow the attribute")

	owner := record.New("Post", map[string]interface{}{"id": "p1"})
	_, err = post.ReadRelation(context.Background(), owner, "tags", false)
	assert.ErrorIs(t, err, ErrNoAccessor)
}

func TestSubtypeInheritsAccessors(t *testing.T) {
	reads := 0
	factory := func(owner *record.Record, ref *Reflection) Runtime {
		return stubRuntime{owner: owner, ref: ref, reads: &reads}
	}

	reg := NewRegistry()
	b := NewBuilder(reg, factory)

	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)
	_, err = b.Build(post, "comments", ToMany, nil)
	require.NoError(t, err)

	guide, err := reg.Define("Guide", post)
	require.NoError(t, err)
	assert.True(t, guide.HasAccessor("comments"))
}
