package bot

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("/start")
	require.True(t, ok)
	assert.Equal(t, "start", cmd)
	assert.Empty(t, args)

	cmd, args, ok = p.ParseCommand("  /verify_payment  UPI 12345  ")
	require.True(t, ok)
	assert.Equal(t, "verify_payment", cmd)
	assert.Equal(t, []string{"UPI", "12345"}, args)

	cmd, _, ok = p.ParseCommand("/Menu@resource_bot")
	require.True(t, ok)
	assert.Equal(t, "menu", cmd)

	_, _, ok = p.ParseCommand("CSE211")
	assert.False(t, ok)

	_, _, ok = p.ParseCommand("/")
	assert.False(t, ok)
}

func TestSearchCodeExtraction(t *testing.T) {
	assert.Equal(t, "CSE211", searchCodeRe.FindString("give me cse211 please"))
	assert.Equal(t, "MAT102", searchCodeRe.FindString("MAT102"))
	assert.Empty(t, searchCodeRe.FindString("mathematics"))
	assert.Empty(t, searchCodeRe.FindString("ABCD123"))
}

func encodeTestHash(password string) string {
	salt := make([]byte, 16)
	rand.Read(salt)
	hash := argon2.IDKey([]byte(password), salt, 3, 65536, 2, 32)
	return fmt.Sprintf("$argon2id$v=19$m=65536,t=3,p=2$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestVerifyArgon2id(t *testing.T) {
	encoded := encodeTestHash("s3cret")

	assert.True(t, verifyArgon2id("s3cret", encoded))
	assert.False(t, verifyArgon2id("wrong", encoded))
	assert.False(t, verifyArgon2id("s3cret", "not-a-hash"))
}

func TestLoginGateLockout(t *testing.T) {
	gate := newLoginGate(encodeTestHash("s3cret"))

	assert.False(t, gate.unlocked(42))

	for i := 0; i < maxLoginAttempts; i++ {
		assert.Error(t, gate.tryLogin(42, "wrong"))
	}
	// После лимита даже верный пароль не проходит.
	assert.Error(t, gate.tryLogin(42, "s3cret"))
	assert.False(t, gate.unlocked(42))
}

func TestLoginGateSuccess(t *testing.T) {
	gate := newLoginGate(encodeTestHash("s3cret"))

	require.NoError(t, gate.tryLogin(42, "s3cret"))
	assert.True(t, gate.unlocked(42))
	// Чужой админ всё ещё заперт.
	assert.False(t, gate.unlocked(43))
}

func TestLoginGateDisabledWithoutHash(t *testing.T) {
	gate := newLoginGate("")
	assert.True(t, gate.unlocked(42))
	assert.NoError(t, gate.tryLogin(42, "anything"))
}
