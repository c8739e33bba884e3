package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) (*Registry, *Builder) {
	reg := NewRegistry()
	return reg, NewBuilder(reg, nil)
}

func TestBuildToMany(t *testing.T) {
	reg, b := setupRegistry(t)

	post, err := reg.Define("Post", nil, "id", "title")
	require.NoError(t, err)
	_, err = reg.Define("Comment", nil, "id", "body", "post_id")
	require.NoError(t, err)

	ref, err := b.Build(post, "comments", ToMany, Options{
		OptEachSerializer: "CommentSerializer",
		OptDependent:      "destroy",
	})
	require.NoError(t, err)

	assert.Equal(t, ToMany, ref.Kind())
	assert.Equal(t, "comments", ref.Name())
	assert.True(t, ref.Collection())
	assert.Equal(t, "Comment", ref.RelatedName())
	assert.Equal(t, "post_id", ref.ForeignKey())
	assert.Equal(t, "post", ref.InverseName())

	got, ok := post.Reflection("comments")
	require.True(t, ok)
	assert.Same(t, ref, got)
}

func TestBuildToOne(t *testing.T) {
	reg, b := setupRegistry(t)

	comment, err := reg.Define("Comment", nil, "id", "body", "author_id")
	require.NoError(t, err)
	_, err = reg.Define("Author", nil, "id", "name")
	require.NoError(t, err)

	ref, err := b.Build(comment, "author", ToOne, nil)
	require.NoError(t, err)

	assert.Equal(t, ToOne, ref.Kind())
	assert.False(t, ref.Collection())
	assert.Equal(t, "Author", ref.RelatedName())
	assert.Equal(t, "author_id", ref.ForeignKey())
}

func TestBuildRejectsUnknownOption(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	// Configuration mistakes fail at declaration time, before any instance
	// exists.
	_, err = b.Build(post, "comments", ToMany, Options{"fooBar": true})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "fooBar")
}

func TestBuildRejectsToManyOptionOnToOne(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	_, err = b.Build(post, "author", ToOne, Options{OptEachSerializer: "AuthorSerializer"})
	assert.True(t, IsConfigurationError(err))

	_, err = b.Build(post, "author", ToOne, Options{OptDependent: "destroy"})
	assert.True(t, IsConfigurationError(err))
}

func TestBuildRejectsInvalidName(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	for _, name := range []string{"", "1comments", "com ments", "a.b", "a-b"} {
		_, err := b.Build(post, name, ToMany, nil)
		assert.True(t, IsConfigurationError(err), "name %q should be rejected", name)
	}
}

func TestBuildRejectsBadDependentPolicy(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	_, err = b.Build(post, "comments", ToMany, Options{OptDependent: "nuke"})
	assert.True(t, IsConfigurationError(err))

	_, err = b.Build(post, "comments", ToMany, Options{OptDependent: 42})
	assert.True(t, IsConfigurationError(err))
}

func TestBuildRejectsDuplicateDeclaration(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	_, err = b.Build(post, "comments", ToMany, nil)
	require.NoError(t, err)
	_, err = b.Build(post, "comments", ToMany, nil)
	assert.True(t, IsConfigurationError(err))
}

func TestBuildBaseOptionsAccepted(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	ref, err := b.Build(post, "comments", ToMany, Options{
		OptEmbed:      "ids",
		OptExcept:     []string{"body"},
		OptOnly:       []string{"id"},
		OptSerializer: "CommentSerializer",
	})
	require.NoError(t, err)

	embed, ok := ref.Option(OptEmbed)
	require.True(t, ok)
	assert.Equal(t, "ids", embed)
}

func TestRelatedNameDerivation(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    Kind
		related string
	}{
		{"comments", ToMany, "Comment"},
		{"stories", ToMany, "Story"},
		{"boxes", ToMany, "Box"},
		{"release_notes", ToMany, "ReleaseNote"},
		{"author", ToOne, "Author"},
	}
	for _, tc := range tests {
		ref, err := b.Build(post, tc.name, tc.kind, nil)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.related, ref.RelatedName(), tc.name)
	}
}

func TestOptionsCopied(t *testing.T) {
	reg, b := setupRegistry(t)
	post, err := reg.Define("Post", nil, "id")
	require.NoError(t, err)

	opts := Options{OptEmbed: "ids"}
	ref, err := b.Build(post, "comments", ToMany, opts)
	require.NoError(t, err)

	// Mutating the caller's map after declaration must not leak into the
	// reflection.
	opts[OptEmbed] = "objects"
	v, _ := ref.Option(OptEmbed)
	assert.Equal(t, "ids", v)
}
