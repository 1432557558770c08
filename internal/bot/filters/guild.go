package filters

import (
	"context"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/features/members"
)

// GuildFilter пропускает сообщения только из разрешённого сервера
// и личные сообщения известных участников (для админ-логина).
type GuildFilter struct {
	guildID       string
	memberService *members.Service
	session       *discordgo.Session
}

func NewGuildFilter(guildID string, memberService *members.Service, session *discordgo.Session) *GuildFilter {
	return &GuildFilter{
		guildID:       guildID,
		memberService: memberService,
		session:       session,
	}
}

func (f *GuildFilter) CheckAccess(ctx context.Context, m *discordgo.MessageCreate) bool {
	if m == nil || m.Author == nil {
		log.WithField("component", "GuildFilter").Warn("nil message/author")
		return false
	}
	if f.guildID == "" {
		log.WithField("component", "GuildFilter").Error("guildID пуст (ошибка конфигурации)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "GuildFilter",
		"guild_id":  m.GuildID,
		"user_id":   m.Author.ID,
	})

	// 1) Разрешённый сервер
	if m.GuildID == f.guildID {
		logger.Debug("allow: домашний сервер")
		return true
	}

	// 2) Личка (GuildID пуст): сначала быстро по БД
	if m.GuildID == "" {
		isMember, err := f.memberService.IsMember(ctx, m.Author.ID)
		if err != nil {
			logger.WithError(err).Error("проверка участника по БД не удалась")
			return false
		}
		if isMember {
			logger.Debug("allow: личка известного участника")
			return true
		}

		// 2.1) БД не знает пользователя: спрашиваем Discord, состоит ли он
		// на сервере, и при успехе дозаписываем в БД
		gm, err := f.session.GuildMember(f.guildID, m.Author.ID)
		if err != nil || gm == nil || gm.User == nil {
			logger.Info("deny: не участник сервера")
			return false
		}

		if err := f.memberService.EnsureMember(ctx, gm.User.ID, gm.User.Username, gm.Nick); err != nil {
			logger.WithError(err).Warn("не удалось дозаписать участника в БД (пропускаем всё равно)")
		}
		logger.Info("allow: личка (участник по Discord API, дозаписан)")
		return true
	}

	// 3) Чужие серверы игнорируем
	logger.Info("deny: чужой сервер")
	return false
}
