package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"home",
		"home/",
		"home/livingroom/",
		"a-b_c.d/e",
		"0/1/2",
	}

	for _, tt := range valid {
		require.NoError(t, Validate(tt), tt)
	}

	invalid := []string{
		"",
		"home livingroom",
		"home#",
		"home+",
		"höme/",
		"home\x00",
	}

	for _, tt := range invalid {
		require.EqualError(t, Validate(tt), ErrInvalid.Error(), tt)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	require.Equal(t, "home/", Normalize("home"))
	require.Equal(t, "home/", Normalize("home/"))
	require.Equal(t, Normalize("a/b"), Normalize(Normalize("a/b")))
}

func TestMatches(t *testing.T) {
	require.True(t, Matches("home/", "home/"))
	require.True(t, Matches("home/livingroom/", "home/"))
	require.False(t, Matches("home/", "home/livingroom/"))
	require.False(t, Matches("office/", "home/"))
	require.False(t, Matches("homeoffice/", "home/"))

	// empty subscription covers everything
	require.True(t, Matches("home/", ""))
	require.True(t, Matches("office/kitchen/", ""))
}

func TestSelectorResolve(t *testing.T) {
	topics, err := Set("home", "office/").Resolve()
	require.NoError(t, err)
	require.Equal(t, []string{"home/", "office/"}, topics)

	topics, err = Single("home/kitchen").Resolve()
	require.NoError(t, err)
	require.Equal(t, []string{"home/kitchen/"}, topics)

	topics, err = None().Resolve()
	require.NoError(t, err)
	require.Nil(t, topics)
	require.True(t, None().All())
}

func TestSelectorResolveAtomic(t *testing.T) {
	_, err := Set("home/", "bad topic", "office/").Resolve()
	require.EqualError(t, err, ErrInvalid.Error())

	_, err = Set().Resolve()
	require.EqualError(t, err, ErrInvalid.Error())
}
