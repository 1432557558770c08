// Package prediction — service.go содержит бизнес-логику тотализатора:
// валидация ставок, блокировка, коэффициенты, расчёт.
package prediction

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// Store — интерфейс хранилища прогнозов. Реализуется Repository (PostgreSQL).
// Stake и Resolve атомарны целиком.
type Store interface {
	Create(ctx context.Context, title, option1, option2 string, endTS time.Time) (int64, error)
	GetByID(ctx context.Context, id int64) (*Prediction, error)
	List(ctx context.Context) ([]*Prediction, error)
	Stake(ctx context.Context, predictionID int64, userID string, side int, amount int64) error
	Lock(ctx context.Context, predictionID int64) (bool, error)
	LockExpired(ctx context.Context) ([]int64, error)
	Resolve(ctx context.Context, predictionID int64, winningSide int) (*ResolveResult, error)
}

// Service управляет тотализатором.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт сервис прогнозов.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Create создаёт прогноз (админская операция).
func (s *Service) Create(ctx context.Context, title, option1, option2 string, durationMinutes int) (int64, error) {
	if title == "" || len(title) > 255 || option1 == "" || option2 == "" ||
		len(option1) > 100 || len(option2) > 100 || durationMinutes <= 0 {
		return 0, common.ErrInvalidAmount
	}

	id, err := s.store.Create(ctx, title, option1, option2,
		time.Now().Add(time.Duration(durationMinutes)*time.Minute))
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"prediction_id": id, "title": title}).Info("Прогноз создан")
	return id, nil
}

// Stake принимает ставку на исход side (1 или 2).
// Отказы: прогноз заблокирован/просрочен, ставка вне диапазона
// (0 < amount <= максимум), у пользователя ставка на другой исход,
// не хватает монет. На любом отказе ничего не списывается.
func (s *Service) Stake(ctx context.Context, predictionID int64, userID string, side int, amount int64) error {
	if side != Side1 && side != Side2 {
		return common.ErrInvalidSide
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if amount > s.cfg.PredictionMaxStake {
		return common.ErrStakeTooLarge
	}

	if err := s.store.Stake(ctx, predictionID, userID, side, amount); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"prediction_id": predictionID,
		"user_id":       userID,
		"side":          side,
		"amount":        amount,
	}).Info("Ставка на прогноз принята")
	return nil
}

// Lock закрывает приём ставок (вручную админом или свипом планировщика).
func (s *Service) Lock(ctx context.Context, predictionID int64) (bool, error) {
	locked, err := s.store.Lock(ctx, predictionID)
	if err != nil {
		return false, err
	}
	if locked {
		log.WithField("prediction_id", predictionID).Info("Прогноз заблокирован")
	}
	return locked, nil
}

// LockExpired блокирует прогнозы с истёкшим дедлайном (для планировщика).
func (s *Service) LockExpired(ctx context.Context) ([]int64, error) {
	return s.store.LockExpired(ctx)
}

// Totals возвращает суммы пулов обоих исходов.
func (s *Service) Totals(ctx context.Context, predictionID int64) (int64, int64, error) {
	p, err := s.store.GetByID(ctx, predictionID)
	if err != nil {
		return 0, 0, err
	}
	return p.SideTotal(Side1), p.SideTotal(Side2), nil
}

// Odds возвращает отображаемый коэффициент исхода: (t1+t2)/total(side),
// 0 — если на исход никто не ставил. Коэффициент справочный, на выплаты
// не влияет: расчёт всегда идёт от фактических пулов.
func Odds(p *Prediction, side int) float64 {
	total := p.SideTotal(side)
	if total == 0 {
		return 0
	}
	return float64(p.SideTotal(Side1)+p.SideTotal(Side2)) / float64(total)
}

// Resolve рассчитывает прогноз в пользу winningSide.
// Перед расчётом прогноз блокируется, если ещё не был.
func (s *Service) Resolve(ctx context.Context, predictionID int64, winningSide int) (*ResolveResult, error) {
	if winningSide != Side1 && winningSide != Side2 {
		return nil, common.ErrInvalidSide
	}

	// Одноходовая блокировка; false (уже заблокирован) — не ошибка
	if _, err := s.store.Lock(ctx, predictionID); err != nil {
		return nil, err
	}

	res, err := s.store.Resolve(ctx, predictionID, winningSide)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prediction_id": predictionID,
		"winning_side":  winningSide,
		"win_total":     res.WinTotal,
		"lose_pool":     res.LosePool,
		"winners":       len(res.Payouts),
	}).Info("Прогноз рассчитан")
	return res, nil
}

// List возвращает все нерассчитанные прогнозы.
func (s *Service) List(ctx context.Context) ([]*Prediction, error) {
	return s.store.List(ctx)
}
