package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "muller bau", normalizeName("Müller-Bau GmbH & Co. KG"))
	assert.Equal(t, "strasse", normalizeName("STRASSE"))
	assert.Equal(t, "strasse", normalizeName("Straße"))
	assert.Equal(t, "gmbh", normalizeName("GmbH"))
	assert.Equal(t, "", normalizeName(" ,. "))
}

func TestContainsToken(t *testing.T) {
	assert.True(t, containsToken("INV-2024-001", "2024-001"))
	assert.True(t, containsToken("2024-001", "2024-001"))
	assert.True(t, containsToken("Rechnung Nr. Ä-17, danke", "ä-17"))
	assert.False(t, containsToken("INV-2024-0011", "2024-001"))
	assert.False(t, containsToken("", "1"))
	assert.False(t, containsToken("abc", "  "))
}
