// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: границы недель и месяцев, русская плюрализация,
// форматирование дат и сумм.
package common

import (
	"fmt"
	"math"
	"time"
)

// WeekStart возвращает ближайший прошедший понедельник 00:00
// в часовом поясе loc. Квота «reader-of-prev» сбрасывается именно
// в этот момент.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	// time.Weekday: воскресенье = 0, понедельник = 1
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offset)
}

// WeekIndex возвращает номер недели как количество полных недель
// с понедельника 2020-01-06 (опорная дата). Используется в уникальном
// ограничении (promotion_id, user_id, week_index) — жёсткая гарантия
// «не больше одной выдачи в неделю».
func WeekIndex(t time.Time, loc *time.Location) int {
	epoch := time.Date(2020, time.January, 6, 0, 0, 0, 0, loc)
	return int(WeekStart(t, loc).Sub(epoch) / (7 * 24 * time.Hour))
}

// MonthBounds возвращает границы календарного месяца [from, to)
// для строки вида "2024-08" в часовом поясе loc.
func MonthBounds(month string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("некорректный месяц %q: %w", month, err)
	}
	return from, from.AddDate(0, 1, 0), nil
}

// FormatDateTime форматирует время для описаний транзакций и логов.
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// PluralizeTickets возвращает правильную форму слова «билет» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "билет" (1, 21, 31, 101, ...)
//   - n%10 в [2,4] И n%100 НЕ в [12,14] → "билета" (2, 3, 4, 22, ...)
//   - Остальные случаи → "билетов" (0, 5-20, 25-30, 100, ...)
func PluralizeTickets(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "билет"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "билета"
	}
	return "билетов"
}

// FormatTickets форматирует количество билетов в читабельную строку.
// Пример: FormatTickets(2) → "2 билета"
func FormatTickets(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeTickets(n))
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}
