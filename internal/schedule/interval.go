// Package schedule вычисляет время срабатывания, хранит задания по расписанию
// и запускает их в фоновом цикле.
package schedule

import (
	"strings"
	"time"

	"mediawiper/internal/apperr"
)

// Interval период повторения задания
type Interval string

const (
	Once    Interval = "once"
	Hourly  Interval = "hourly"
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// Intervals все поддерживаемые периоды
func Intervals() []Interval {
	return []Interval{Once, Hourly, Daily, Weekly, Monthly}
}

// Valid проверяет, что период из закрытого набора
func (i Interval) Valid() bool {
	switch i {
	case Once, Hourly, Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Recurring true для всех периодов, кроме once
func (i Interval) Recurring() bool {
	return i != Once
}

func (i Interval) String() string {
	return string(i)
}

// ParseInterval разбирает имя периода
func ParseInterval(name string) (Interval, error) {
	i := Interval(strings.ToLower(strings.TrimSpace(name)))
	if !i.Valid() {
		return "", apperr.Configf("неподдерживаемый период: %s", name)
	}
	return i, nil
}

// NextFire возвращает ближайшее время срабатывания строго после now.
// Для once это сам anchor; once с anchor <= now считается ошибкой конфигурации.
// daily и weekly шагают календарными днями в зоне anchor, поэтому
// время суток сохраняется при переходе на летнее время.
// monthly сохраняет день месяца anchor, а в коротких месяцах берёт последний день.
func NextFire(interval Interval, anchor, now time.Time) (time.Time, error) {
	switch interval {
	case Once:
		if !anchor.After(now) {
			return time.Time{}, apperr.Configf("время однократного запуска %s уже прошло", anchor.Format(time.RFC3339))
		}
		return anchor, nil
	case Hourly:
		return firstAfter(now, estimate(anchor, now, time.Hour), func(k int) time.Time {
			return anchor.Add(time.Duration(k) * time.Hour)
		}), nil
	case Daily:
		return firstAfter(now, estimate(anchor, now, 24*time.Hour), func(k int) time.Time {
			return anchor.AddDate(0, 0, k)
		}), nil
	case Weekly:
		return firstAfter(now, estimate(anchor, now, 7*24*time.Hour), func(k int) time.Time {
			return anchor.AddDate(0, 0, 7*k)
		}), nil
	case Monthly:
		local := now.In(anchor.Location())
		months := (local.Year()-anchor.Year())*12 + int(local.Month()-anchor.Month()) - 1
		return firstAfter(now, max(months, 0), func(k int) time.Time {
			return addMonthsClamped(anchor, k)
		}), nil
	default:
		return time.Time{}, apperr.Configf("неподдерживаемый период: %s", interval)
	}
}

// estimate даёт k, не превышающее искомое: на шаг меньше, чтобы переходы
// на летнее время не увели за ответ
func estimate(anchor, now time.Time, approx time.Duration) int {
	if !now.After(anchor) {
		return 0
	}
	return max(int(now.Sub(anchor)/approx)-1, 0)
}

func firstAfter(now time.Time, k int, candidate func(int) time.Time) time.Time {
	t := candidate(k)
	for !t.After(now) {
		k++
		t = candidate(k)
	}
	return t
}

// addMonthsClamped сдвигает anchor на k месяцев, ограничивая день последним днём месяца
func addMonthsClamped(anchor time.Time, k int) time.Time {
	year, month, day := anchor.Date()
	target := time.Date(year, month+time.Month(k), 1, 0, 0, 0, 0, anchor.Location())
	last := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, anchor.Location()).Day()
	return time.Date(target.Year(), target.Month(), min(day, last),
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}
