// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки экономики (монеты, переводы)
var (
	// ErrInsufficientFunds — недостаточно монет на счёте
	ErrInsufficientFunds = errors.New("недостаточно монет на счёте")
	// ErrSelfTransfer — попытка перевести монеты самому себе
	ErrSelfTransfer = errors.New("нельзя переводить монеты самому себе")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrNotFound — запись не найдена (пользователь, аукцион, прогноз, товар)
	ErrNotFound = errors.New("запись не найдена")
)

// Ошибки магазина
var (
	// ErrOutOfStock — товара нет в наличии
	ErrOutOfStock = errors.New("товара нет в наличии")
	// ErrItemExists — товар уже зарегистрирован в магазине
	ErrItemExists = errors.New("товар уже есть в магазине")
	// ErrBankEmpty — в кассе магазина не хватает средств на возврат
	ErrBankEmpty = errors.New("в кассе магазина недостаточно средств")
)

// Ошибки аукциона
var (
	// ErrAuctionClosed — аукцион уже завершён или время вышло
	ErrAuctionClosed = errors.New("аукцион уже завершён")
	// ErrBidTooLow — ставка не выше текущей
	ErrBidTooLow = errors.New("ставка должна быть выше текущей")
	// ErrBidCooldown — победитель аукциона на кулдауне (7 дней)
	ErrBidCooldown = errors.New("после победы в аукционе нельзя делать ставки 7 дней")
)

// Ошибки прогнозов (тотализатор)
var (
	// ErrPredictionLocked — приём ставок закрыт
	ErrPredictionLocked = errors.New("приём ставок на этот прогноз закрыт")
	// ErrWrongSide — у пользователя уже есть ставка на другой исход
	ErrWrongSide = errors.New("у вас уже есть ставка на другой исход")
	// ErrStakeTooLarge — ставка превышает максимальный размер
	ErrStakeTooLarge = errors.New("ставка превышает максимально допустимую")
	// ErrInvalidSide — исход должен быть 1 или 2
	ErrInvalidSide = errors.New("исход должен быть 1 или 2")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
