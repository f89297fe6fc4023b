package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryKeysAreLanguagePrefixed(t *testing.T) {
	t.Parallel()
	prefixes := []string{"ts-", "js-", "java-", "py-", "go-", "md-"}
	for _, key := range AllKeys() {
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				matched = true
				break
			}
		}
		assert.True(t, matched, "key %q must carry a language prefix", key)
	}
}

func TestLibraryDeclaredCapturesAppearInPattern(t *testing.T) {
	t.Parallel()
	for _, key := range AllKeys() {
		e, ok := Lookup(key)
		require.True(t, ok)
		require.NotEmpty(t, e.Captures, "key %q declares its captures", key)
		for _, c := range e.Captures {
			assert.Contains(t, e.Pattern, "@"+c,
				"key %q declares capture %q that the pattern must define", key, c)
		}
	}
}

func TestLookupUnknownKey(t *testing.T) {
	t.Parallel()
	_, ok := Lookup("ts-no-such-key")
	assert.False(t, ok)
}
