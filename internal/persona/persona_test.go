package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefault(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Ryosa", p.Name)
	assert.NotEmpty(t, p.Fallbacks)
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	content := `
name: Nebby
identity: "You are Nebby, a grumpy space cat."
aliases: [Nebby, NEB]
bot_accounts: [NebbyBot]
command_prefix: "!neb"
special_users:
  Captain: "This is the captain."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Nebby", p.Name)
	assert.Equal(t, []string{"nebby", "neb"}, p.Aliases)
	assert.True(t, p.IsSelf("NebbyBot"))
	assert.Equal(t, "This is the captain.", p.SpecialNote("CAPTAIN"))
}

func TestLoad_RejectsEmptyIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: X\nidentity: \"\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestMentioned(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"at mention", "@Ryosa are you there?", true},
		{"plain name", "hey ryosa how are you", true},
		{"short alias as word", "ryo, what game is this?", true},
		{"alias inside another word", "the pyrotechnics are great", false},
		{"no mention", "hello everyone", false},
		{"case insensitive", "RYOSA!!!", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Mentioned(tt.text))
		})
	}
}

func TestIsCommand(t *testing.T) {
	p := Default()

	assert.True(t, p.IsCommand("!ryosa tell me a joke"))
	assert.True(t, p.IsCommand("  @ryosa hi"))
	assert.False(t, p.IsCommand("did ryosa say something?"))
	assert.False(t, p.IsCommand("!help"))
}

func TestIsSelf(t *testing.T) {
	p := Default()

	assert.True(t, p.IsSelf("RyosaIA"))
	assert.True(t, p.IsSelf("ryosa"))
	assert.False(t, p.IsSelf("tosachii"))
}

func TestFallback_RotatesDeterministically(t *testing.T) {
	p := Default()

	first := p.Fallback(0)
	again := p.Fallback(0)
	next := p.Fallback(1)
	assert.Equal(t, first, again)
	assert.NotEqual(t, first, next)
	assert.Equal(t, first, p.Fallback(uint64(len(p.Fallbacks))))
}
