// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях сервиса.
// Эти ошибки позволяют HTTP-слою различать типы проблем
// и отдавать клиенту стабильные строковые коды.
package common

import "errors"

// Ошибки кошелька билетов (productbook)
var (
	// ErrTicketNotFound — билет не найден в базе
	ErrTicketNotFound = errors.New("билет не найден")
	// ErrTicketForbidden — билет принадлежит другому пользователю
	ErrTicketForbidden = errors.New("билет принадлежит другому пользователю")
	// ErrTicketAlreadyUsed — билет уже использован (конкурентное потребление)
	ErrTicketAlreadyUsed = errors.New("билет уже использован")
	// ErrTicketExpired — срок аренды билета истёк
	ErrTicketExpired = errors.New("срок действия билета истёк")
	// ErrTicketNotApplicable — билет не подходит к этому эпизоду
	ErrTicketNotApplicable = errors.New("билет не применим к этому эпизоду")
	// ErrTicketNotRental — own-билеты не потребляются, они просто дают доступ
	ErrTicketNotRental = errors.New("own-билет не потребляется")
	// ErrInvalidScope — запрещённая комбинация (product_id NULL, episode_id задан)
	ErrInvalidScope = errors.New("некорректная область действия билета")
)

// Ошибки кассовой книги (cashbook)
var (
	// ErrInsufficientBalance — недостаточно кэша на счёте
	ErrInsufficientBalance = errors.New("недостаточно кэша на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrSelfTransfer — попытка спонсировать самого себя
	ErrSelfTransfer = errors.New("нельзя переводить кэш самому себе")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки подарочного ящика (giftbook)
var (
	// ErrGiftNotFound — подарок не найден
	ErrGiftNotFound = errors.New("подарок не найден")
	// ErrGiftExpired — прошло больше 7 дней с момента выдачи
	ErrGiftExpired = errors.New("срок получения подарка истёк")
	// ErrGiftAlreadyReceived — подарок уже получен
	ErrGiftAlreadyReceived = errors.New("подарок уже получен")
	// ErrGiftForbidden — подарок адресован другому пользователю
	ErrGiftForbidden = errors.New("подарок адресован другому пользователю")
)

// Ошибки промоакций
var (
	// ErrPromotionNotFound — акция не найдена
	ErrPromotionNotFound = errors.New("акция не найдена")
	// ErrPromotionNotActive — акция остановлена или ещё не началась
	ErrPromotionNotActive = errors.New("акция не активна")
	// ErrInvalidTransition — переход из терминального состояния запрещён
	ErrInvalidTransition = errors.New("недопустимый переход состояния акции")
	// ErrWeeklyQuotaExceeded — недельная квота по акции исчерпана
	ErrWeeklyQuotaExceeded = errors.New("недельная квота по акции исчерпана")
)

// Ошибки покупок и платежей
var (
	// ErrEpisodeNotFound — эпизод не найден
	ErrEpisodeNotFound = errors.New("эпизод не найден")
	// ErrProductNotFound — произведение не найдено
	ErrProductNotFound = errors.New("произведение не найдено")
	// ErrFreeEpisode — бесплатный эпизод нельзя купить
	ErrFreeEpisode = errors.New("бесплатный эпизод нельзя купить")
	// ErrAlreadyOwned — у пользователя уже есть own-доступ к эпизоду
	ErrAlreadyOwned = errors.New("эпизод уже куплен")
	// ErrPaymentNotFound — платёж не найден
	ErrPaymentNotFound = errors.New("платёж не найден")
	// ErrPaymentNotPaid — внешний платёж не в статусе Paid
	ErrPaymentNotPaid = errors.New("платёж не подтверждён платёжным шлюзом")
	// ErrCompensationFailed — платёж прошёл, локальная запись не удалась,
	// и отмена в шлюзе тоже не удалась. Требует ручного вмешательства оператора.
	ErrCompensationFailed = errors.New("платёж завершён, но обработка не удалась")
	// ErrOrderNumberCollision — не удалось сгенерировать уникальный номер заказа
	ErrOrderNumberCollision = errors.New("коллизия номера заказа")
	// ErrPaymentDuplicate — конкурентный confirm уже записал этот платёж
	ErrPaymentDuplicate = errors.New("платёж уже записан")
	// ErrDBTransaction — локальная транзакция не закоммитилась
	ErrDBTransaction = errors.New("ошибка транзакции БД")
)

// Ошибки расчётов с авторами
var (
	// ErrSettlementNotFound — строка расчёта за месяц не найдена
	ErrSettlementNotFound = errors.New("расчёт за этот месяц не найден")
	// ErrSettlementCompleted — расчёт уже завершён, статус терминальный
	ErrSettlementCompleted = errors.New("расчёт по произведению уже завершён")
	// ErrSettlementForbidden — произведение вне зоны видимости роли
	ErrSettlementForbidden = errors.New("нет доступа к расчётам этого произведения")
)

// Ошибки авторизации
var (
	// ErrUnauthorized — отсутствует или просрочен bearer-токен
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("нет прав администратора")
	// ErrWrongPassword — неверный админ-пароль
	ErrWrongPassword = errors.New("неверный пароль")
)
