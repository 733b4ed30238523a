package l10n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	t.Run("known key without args", func(t *testing.T) {
		assert.Equal(t, "Installed apps:", T("apps.list.header"))
	})

	t.Run("known key with args", func(t *testing.T) {
		assert.Equal(t, `App "contacts" enabled.`, T("apps.enabled", "contacts"))
	})

	t.Run("unknown key returned verbatim", func(t *testing.T) {
		assert.Equal(t, "no.such.key", T("no.such.key"))
	})

	t.Run("unknown key with args is formatted", func(t *testing.T) {
		assert.Equal(t, "raw message%!(EXTRA string=x)", T("raw message", "x"))
	})
}
