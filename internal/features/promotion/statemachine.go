// Package promotion — statemachine.go описывает допустимые переходы
// статусов заявочной акции.
//
//	apply → ing     (админ принял; фиксируется end_date)
//	apply → deny    (админ отклонил)
//	apply → cancel  (автор отозвал)
//	ing   → end     (админ завершил; end_date := now, если пуст)
//
// end, deny, cancel — стоки: переходов из них нет.
package promotion

var appliedTransitions = map[string][]string{
	StatusApply: {StatusIng, StatusDeny, StatusCancel},
	StatusIng:   {StatusEnd},
}

// CanTransition сообщает, допустим ли переход from → to.
func CanTransition(from, to string) bool {
	for _, t := range appliedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal сообщает, является ли статус терминальным.
func Terminal(status string) bool {
	return len(appliedTransitions[status]) == 0
}
