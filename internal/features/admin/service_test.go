package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"discord-bot/internal/config"
)

func newTestService() *Service {
	return NewService(nil, &config.Config{
		AdminIDs: []string{"111", "222"},
	})
}

func TestIsConfiguredAdmin(t *testing.T) {
	svc := newTestService()

	assert.True(t, svc.IsConfiguredAdmin("111"))
	assert.True(t, svc.IsConfiguredAdmin("222"))
	assert.False(t, svc.IsConfiguredAdmin("333"))
	assert.False(t, svc.IsConfiguredAdmin(""))
}

func TestStateMachine(t *testing.T) {
	svc := newTestService()

	// Нет состояния
	assert.Nil(t, svc.GetState("111"))

	// Установка и чтение
	svc.SetState("111", StateAwaitingPassword, nil)
	state := svc.GetState("111")
	if assert.NotNil(t, state) {
		assert.Equal(t, StateAwaitingPassword, state.State)
	}

	// Сброс
	svc.ClearState("111")
	assert.Nil(t, svc.GetState("111"))
}

func TestStateMachine_Expiry(t *testing.T) {
	svc := newTestService()

	svc.SetState("111", StateAwaitingPassword, nil)

	// Принудительно просрочим состояние
	svc.statesMu.Lock()
	svc.states["111"].ExpiresAt = time.Now().Add(-time.Minute)
	svc.statesMu.Unlock()

	assert.Nil(t, svc.GetState("111"))
}

func TestVerifyArgon2id_MalformedHash(t *testing.T) {
	assert.False(t, verifyArgon2id("пароль", "не-хеш"))
	assert.False(t, verifyArgon2id("пароль", "$argon2id$v=19$битый"))
	assert.False(t, verifyArgon2id("пароль", "$argon2id$v=19$m=65536,t=3,p=2$не_base64!$тоже"))
	assert.False(t, verifyArgon2id("пароль", ""))
}

func TestGenerateSecureToken_Unique(t *testing.T) {
	a := generateSecureToken()
	b := generateSecureToken()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
